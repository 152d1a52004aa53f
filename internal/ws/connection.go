package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vehiclesense/internal/service"
)

// detectionFrame is one event pushed by a camera client.
type detectionFrame struct {
	OCRText    string  `json:"ocr_text"`
	Confidence float64 `json:"confidence"`
	ImageB64   string  `json:"image_b64"`
	ImagePath  string  `json:"image_path"`
}

// detectionAck is the per-frame reply.
type detectionAck struct {
	Status    string `json:"status"`
	SessionID int64  `json:"session_id,omitempty"`
	Plate     string `json:"plate,omitempty"`
	OwnerName string `json:"owner_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Connection represents an active camera detector stream.
type Connection struct {
	cameraID     string
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	processor    DetectionProcessor
	writeTimeout time.Duration
	onClose      func(cameraID string)
}

// NewConnection builds connection wrapper.
func NewConnection(cameraID string, ws *websocket.Conn, processor DetectionProcessor, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Connection {
	return &Connection{
		cameraID:     cameraID,
		ws:           ws,
		send:         make(chan []byte, 16),
		logger:       logger,
		processor:    processor,
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
}

// CameraID returns identifier.
func (c *Connection) CameraID() string {
	return c.cameraID
}

// Start launches read/write pumps.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(8 * 1024 * 1024)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("camera stream closed", zap.String("camera_id", c.cameraID), zap.Error(err))
			return
		}

		c.Send(c.handleFrame(ctx, message))
	}
}

func (c *Connection) handleFrame(ctx context.Context, message []byte) []byte {
	var frame detectionFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return mustMarshal(detectionAck{Status: "error", Error: "invalid json frame"})
	}

	var image []byte
	if frame.ImageB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(frame.ImageB64)
		if err != nil {
			return mustMarshal(detectionAck{Status: "error", Error: "invalid image encoding"})
		}
		image = decoded
	}

	result, err := c.processor.ProcessDetection(ctx, service.DetectionInput{
		PlateText:  frame.OCRText,
		Confidence: frame.Confidence,
		Image:      image,
		ImagePath:  frame.ImagePath,
		CameraID:   c.cameraID,
	})
	if err != nil {
		if !errors.Is(err, service.ErrEmptyPlate) {
			c.logger.Warn("failed to process detection frame",
				zap.String("camera_id", c.cameraID),
				zap.Error(err))
		}
		return mustMarshal(detectionAck{Status: "error", Error: err.Error()})
	}

	return mustMarshal(detectionAck{
		Status:    "ok",
		SessionID: result.SessionID,
		Plate:     result.Plate,
		OwnerName: result.Owner.OwnerName,
	})
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message for writing.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed camera stream", zap.String("camera_id", c.cameraID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping detection ack, buffer full", zap.String("camera_id", c.cameraID))
	}
}

// Ping sends ping.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c.cameraID)
	}
}

func mustMarshal(ack detectionAck) []byte {
	data, err := json.Marshal(ack)
	if err != nil {
		return []byte(`{"status":"error"}`)
	}
	return data
}
