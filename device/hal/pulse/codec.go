package pulse

import (
	"fmt"
	"net"
	"sync"

	"github.com/jfreymuth/pulse/proto"

	"github.com/ardnew/softdac/device/hal"
	"github.com/ardnew/softdac/pkg"
)

// volumeNorm is PulseAudio's 100% channel volume.
const volumeNorm = 0x10000

// requester is the subset of *proto.Client the codec uses.
type requester interface {
	Request(req proto.RequestArgs, rpl proto.Reply) error
}

// Codec forwards volume and mute to a PulseAudio sink, standing in for the
// DAC's register interface. Rate and bit depth are owned by the sound server
// and only recorded.
type Codec struct {
	client requester
	conn   net.Conn

	mutex    sync.Mutex
	sink     uint32
	channels int
	rate     uint32
	bitDepth uint8
}

var _ hal.Codec = (*Codec)(nil)

// Dial connects to the PulseAudio server at addr ("" for the default) and
// binds to the default sink.
func Dial(addr, clientName string) (*Codec, error) {
	client, conn, err := proto.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("connect to PulseAudio: %w", err)
	}

	err = client.Request(&proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString(clientName),
		},
	}, &proto.SetClientNameReply{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set PulseAudio client name: %w", err)
	}

	c, err := newCodec(client)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newCodec(client requester) (*Codec, error) {
	var reply proto.GetSinkInfoReply
	if err := client.Request(&proto.GetSinkInfo{SinkIndex: proto.Undefined}, &reply); err != nil {
		return nil, fmt.Errorf("get default sink: %w", err)
	}

	pkg.LogInfo(pkg.ComponentHAL, "PulseAudio sink bound",
		"sink", reply.SinkName,
		"index", reply.SinkIndex,
		"channels", reply.Channels)

	return &Codec{
		client:   client,
		sink:     reply.SinkIndex,
		channels: max(int(reply.Channels), 1),
	}, nil
}

// Configure records the stream format.
func (c *Codec) Configure(rate uint32, bitDepth uint8) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.rate = rate
	c.bitDepth = bitDepth
	return nil
}

// SetVolume sets every sink channel to percent of the normal volume.
func (c *Codec) SetVolume(percent uint8) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	vol := channelVolume(percent)
	volumes := make(proto.ChannelVolumes, c.channels)
	for i := range volumes {
		volumes[i] = vol
	}

	err := c.client.Request(&proto.SetSinkVolume{
		SinkIndex:      c.sink,
		ChannelVolumes: volumes,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink volume: %w", err)
	}
	return nil
}

// SetMute mutes or unmutes the sink.
func (c *Codec) SetMute(mute bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := c.client.Request(&proto.SetSinkMute{
		SinkIndex: c.sink,
		Mute:      mute,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink mute: %w", err)
	}
	return nil
}

// Close releases the server connection.
func (c *Codec) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func channelVolume(percent uint8) uint32 {
	return uint32(min(percent, 100)) * volumeNorm / 100
}
