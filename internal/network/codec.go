package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Первый байт кадра - способ кодирования тела
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// Верхняя граница распакованного кадра
const maxFrameSize = 1 << 20

var ErrBadFrame = errors.New("некорректный кадр")

// Codec кодирует сообщения в кадры. Кадры длиннее порога сжимаются zstd.
// Encoder и Decoder zstd безопасны для конкурентных EncodeAll/DecodeAll.
type Codec struct {
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// NewCodec создает кодек. threshold <= 0 отключает сжатие.
func NewCodec(threshold int) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFrameSize))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{threshold: threshold, enc: enc, dec: dec}, nil
}

// Encode сериализует сообщение в кадр
func (c *Codec) Encode(msg *Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if c.threshold > 0 && len(body) > c.threshold {
		frame := make([]byte, 1, len(body)/2+1)
		frame[0] = frameZstd
		return c.enc.EncodeAll(body, frame), nil
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, frameRaw)
	return append(frame, body...), nil
}

// EncodeData собирает сообщение и кодирует его
func (c *Codec) EncodeData(msgType string, data interface{}) ([]byte, error) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	return c.Encode(msg)
}

// Decode разбирает кадр
func (c *Codec) Decode(frame []byte) (*Message, error) {
	if len(frame) < 2 {
		return nil, ErrBadFrame
	}
	body := frame[1:]
	switch frame[0] {
	case frameRaw:
	case frameZstd:
		var err error
		body, err = c.dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
	default:
		return nil, fmt.Errorf("%w: кодирование %d", ErrBadFrame, frame[0])
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: пустой тип", ErrBadFrame)
	}
	return &msg, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
