package device

import (
	"sync"

	"github.com/ardnew/softdac/pkg"
)

// Interface represents one interface of the audio function together with its
// class driver.
type Interface struct {
	Number           uint8 // Interface number
	AlternateSetting uint8 // Current alternate setting
	NumAlternates    uint8 // Alternate settings exposed (at least 1)
	Class            uint8 // Interface class
	SubClass         uint8 // Interface subclass
	Protocol         uint8 // Interface protocol

	// Endpoints (excluding EP0) - fixed-size array for zero allocation
	endpoints     [MaxEndpointsPerInterface]*Endpoint
	endpointCount int
	mutex         sync.RWMutex

	classDriver ClassDriver
}

// ClassDriver defines the interface for USB class-specific handling.
type ClassDriver interface {
	// Init binds the class driver to the interface.
	Init(iface *Interface) error

	// HandleSetup processes a SETUP request addressed to the interface or
	// one of its endpoints. Returns true if the request was handled. For
	// host-to-device requests with a data stage, data is nil and the driver
	// arranges to receive the data stage itself.
	HandleSetup(iface *Interface, setup *SetupPacket, data []byte) (bool, error)

	// SetAlternate is called when the host selects a new alternate setting.
	SetAlternate(iface *Interface, alt uint8) error

	// Close releases any resources held by the class driver.
	Close() error
}

// NewInterface creates an interface of the audio class.
func NewInterface(number, subClass, numAlternates uint8) *Interface {
	if numAlternates == 0 {
		numAlternates = 1
	}
	return &Interface{
		Number:        number,
		NumAlternates: numAlternates,
		Class:         ClassAudio,
		SubClass:      subClass,
	}
}

// AddEndpoint adds an endpoint to the interface.
func (i *Interface) AddEndpoint(ep *Endpoint) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.endpointCount >= MaxEndpointsPerInterface {
		return pkg.ErrBufferTooSmall
	}

	addr := ep.Address
	for idx := 0; idx < i.endpointCount; idx++ {
		if i.endpoints[idx].Address == addr {
			return pkg.ErrInvalidParameter
		}
	}

	i.endpoints[i.endpointCount] = ep
	i.endpointCount++

	pkg.LogDebug(pkg.ComponentDevice, "endpoint added to interface",
		"interface", i.Number,
		"endpoint", ep.String())

	return nil
}

// GetEndpoint returns the endpoint with the given address.
func (i *Interface) GetEndpoint(address uint8) *Endpoint {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	for idx := 0; idx < i.endpointCount; idx++ {
		if i.endpoints[idx].Address == address {
			return i.endpoints[idx]
		}
	}
	return nil
}

// Endpoints returns all endpoints in the interface.
// The returned slice references internal storage; do not modify.
func (i *Interface) Endpoints() []*Endpoint {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.endpoints[:i.endpointCount]
}

// NumEndpoints returns the number of endpoints in the interface.
func (i *Interface) NumEndpoints() int {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.endpointCount
}

// SetClassDriver sets the class driver for this interface.
func (i *Interface) SetClassDriver(driver ClassDriver) error {
	i.mutex.Lock()
	oldDriver := i.classDriver
	i.classDriver = driver
	i.mutex.Unlock()

	// Old driver is closed outside the lock; one driver may serve several
	// interfaces, so it is only closed when actually replaced.
	if oldDriver != nil && oldDriver != driver {
		if err := oldDriver.Close(); err != nil {
			pkg.LogWarn(pkg.ComponentDevice, "error closing previous class driver",
				"error", err)
		}
	}

	if driver != nil {
		return driver.Init(i)
	}
	return nil
}

// ClassDriver returns the current class driver.
func (i *Interface) ClassDriver() ClassDriver {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.classDriver
}

// HandleSetup processes a class-specific SETUP request.
func (i *Interface) HandleSetup(setup *SetupPacket, data []byte) (bool, error) {
	i.mutex.RLock()
	driver := i.classDriver
	i.mutex.RUnlock()

	if driver == nil {
		return false, nil
	}
	return driver.HandleSetup(i, setup, data)
}

// SetAlternate changes the alternate setting. The stored setting only
// changes when the class driver accepts it.
func (i *Interface) SetAlternate(alt uint8) error {
	i.mutex.RLock()
	driver := i.classDriver
	limit := i.NumAlternates
	i.mutex.RUnlock()

	if alt >= limit {
		return pkg.ErrInvalidRequest
	}
	if driver != nil {
		if err := driver.SetAlternate(i, alt); err != nil {
			return err
		}
	}

	i.mutex.Lock()
	i.AlternateSetting = alt
	i.mutex.Unlock()
	return nil
}

// Alternate returns the current alternate setting.
func (i *Interface) Alternate() uint8 {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	return i.AlternateSetting
}

// Reset returns the interface to alternate setting 0 without notifying the
// class driver.
func (i *Interface) Reset() {
	i.mutex.Lock()
	i.AlternateSetting = 0
	i.mutex.Unlock()
}

// Close releases resources held by the interface.
func (i *Interface) Close() error {
	i.mutex.Lock()
	driver := i.classDriver
	i.classDriver = nil
	i.mutex.Unlock()

	if driver != nil {
		return driver.Close()
	}
	return nil
}

// Configuration groups the interfaces of the audio function and routes
// SETUP requests to the interface that owns their recipient.
type Configuration struct {
	Value uint8 // Configuration value for SET_CONFIGURATION

	interfaces     [MaxInterfacesPerConfiguration]*Interface
	interfaceCount int
	mutex          sync.RWMutex
}

// NewConfiguration creates a new configuration.
func NewConfiguration(value uint8) *Configuration {
	return &Configuration{Value: value}
}

// AddInterface adds an interface to the configuration.
func (c *Configuration) AddInterface(iface *Interface) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.interfaceCount >= MaxInterfacesPerConfiguration {
		return pkg.ErrBufferTooSmall
	}

	for idx := 0; idx < c.interfaceCount; idx++ {
		if c.interfaces[idx].Number == iface.Number {
			return pkg.ErrInvalidParameter
		}
	}

	c.interfaces[c.interfaceCount] = iface
	c.interfaceCount++

	pkg.LogDebug(pkg.ComponentDevice, "interface added to configuration",
		"config", c.Value,
		"interface", iface.Number)

	return nil
}

// GetInterface returns the interface with the given number.
func (c *Configuration) GetInterface(number uint8) *Interface {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for idx := 0; idx < c.interfaceCount; idx++ {
		if c.interfaces[idx].Number == number {
			return c.interfaces[idx]
		}
	}
	return nil
}

// InterfaceForEndpoint returns the interface owning the endpoint address.
func (c *Configuration) InterfaceForEndpoint(address uint8) *Interface {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for idx := 0; idx < c.interfaceCount; idx++ {
		if c.interfaces[idx].GetEndpoint(address) != nil {
			return c.interfaces[idx]
		}
	}
	return nil
}

// Interfaces returns all interfaces in the configuration.
// The returned slice references internal storage; do not modify.
func (c *Configuration) Interfaces() []*Interface {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.interfaces[:c.interfaceCount]
}

// HandleSetup routes a SETUP request. GET_INTERFACE and SET_INTERFACE are
// answered here; everything else goes to the recipient's class driver.
// GET_INTERFACE writes the current setting to data[0].
func (c *Configuration) HandleSetup(setup *SetupPacket, data []byte) (bool, error) {
	var iface *Interface
	switch {
	case setup.IsInterfaceRecipient():
		iface = c.GetInterface(setup.InterfaceNumber())
	case setup.IsEndpointRecipient():
		iface = c.InterfaceForEndpoint(setup.EndpointAddress())
	}
	if iface == nil {
		return false, pkg.ErrInvalidRequest
	}

	if setup.IsStandard() {
		switch setup.Request {
		case RequestSetInterface:
			return true, iface.SetAlternate(uint8(setup.Value))
		case RequestGetInterface:
			if len(data) < 1 {
				return false, pkg.ErrBufferTooSmall
			}
			data[0] = iface.Alternate()
			return true, nil
		}
		return false, nil
	}

	return iface.HandleSetup(setup, data)
}

// Reset returns every interface to alternate setting 0.
func (c *Configuration) Reset() {
	for _, iface := range c.Interfaces() {
		iface.Reset()
	}
}

// Close releases resources held by the configuration.
func (c *Configuration) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var lastErr error
	for idx := 0; idx < c.interfaceCount; idx++ {
		if err := c.interfaces[idx].Close(); err != nil {
			lastErr = err
		}
		c.interfaces[idx] = nil
	}
	c.interfaceCount = 0
	return lastErr
}
