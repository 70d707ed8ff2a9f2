package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/vec"
	"github.com/annel0/mmo-sim/internal/world"
)

// Константы типов сообщений
const (
	// Клиент -> Сервер
	MsgTypeHello   = "hello"   // Вход в сессию, первое сообщение соединения
	MsgTypeInput   = "input"   // Ввод движения
	MsgTypeTarget  = "target"  // Выбор цели
	MsgTypeMoveTo  = "move_to" // Движение к точке
	MsgTypeAbility = "ability" // Способность из слота
	MsgTypePing    = "ping"

	// Сервер -> Клиент
	MsgTypeWelcome  = "welcome"
	MsgTypeSnapshot = "snapshot"
	MsgTypeSpawned  = "spawned"
	MsgTypeRemoved  = "removed"
	MsgTypeNotice   = "notice"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

var ErrUnknownMessage = errors.New("неизвестный тип сообщения")

// Message - конверт сетевого сообщения
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage создает сообщение указанного типа
func NewMessage(msgType string, data interface{}) (*Message, error) {
	if data == nil {
		return &Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("сообщение %s: %w", msgType, err)
	}
	return &Message{Type: msgType, Data: raw}, nil
}

// ===== Клиент -> Сервер =====

// HelloRequest - вход в сессию. Map пустой - карта по умолчанию.
type HelloRequest struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Map   string `json:"map,omitempty"`
}

// InputRequest - ввод движения с номером
type InputRequest struct {
	Seq        uint32  `json:"seq"`
	Horizontal float64 `json:"h"`
	Vertical   float64 `json:"v"`
}

type TargetRequest struct {
	TargetID uint64 `json:"target_id"`
}

type MoveToRequest struct {
	Point vec.Vec3 `json:"point"`
}

type AbilityRequest struct {
	Slot     int    `json:"slot"`
	TargetID uint64 `json:"target_id,omitempty"`
}

type PingRequest struct {
	ClientTime int64 `json:"t"`
}

// ===== Сервер -> Клиент =====

// WelcomeResponse - ответ на hello
type WelcomeResponse struct {
	PlayerID uint64   `json:"player_id"`
	Session  string   `json:"session"`
	Map      string   `json:"map"`
	Position vec.Vec3 `json:"pos"`
	TickRate int      `json:"tick_rate"`
	Speed    float64  `json:"speed"`
	// Параметры предсказания на клиенте
	HeightSmoothing float64 `json:"height_smoothing"`
}

type ErrorResponse struct {
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

type PongResponse struct {
	ClientTime int64 `json:"t"`
	ServerTime int64 `json:"server_t"`
}

// Коды ошибок
const (
	ErrCodeAuth     = "auth_required"
	ErrCodeBadMsg   = "bad_message"
	ErrCodeNoMap    = "no_session"
	ErrCodeBusy     = "busy"
	ErrCodeJoin     = "join_failed"
	ErrCodeInternal = "internal"
)

// toCommand переводит сообщение игрока в команду сессии.
// ping обрабатывается шлюзом и сюда не попадает.
func toCommand(playerID uint64, msg *Message) (world.Command, error) {
	switch msg.Type {
	case MsgTypeInput:
		var req InputRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return world.Input{PlayerID: playerID, Input: movement.Input{
			Seq:        req.Seq,
			Horizontal: req.Horizontal,
			Vertical:   req.Vertical,
		}}, nil
	case MsgTypeTarget:
		var req TargetRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return world.SetTarget{PlayerID: playerID, TargetID: req.TargetID}, nil
	case MsgTypeMoveTo:
		var req MoveToRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return world.MoveTo{PlayerID: playerID, Point: req.Point}, nil
	case MsgTypeAbility:
		var req AbilityRequest
		if err := decodeData(msg, &req); err != nil {
			return nil, err
		}
		return world.ActivateAbility{PlayerID: playerID, Slot: req.Slot, TargetID: req.TargetID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// decodeData разбирает данные сообщения, пустые данные оставляют v без изменений
func decodeData(msg *Message, v interface{}) error {
	if len(msg.Data) == 0 {
		return nil
	}
	return json.Unmarshal(msg.Data, v)
}

func pong(req PingRequest) PongResponse {
	return PongResponse{ClientTime: req.ClientTime, ServerTime: time.Now().UnixMilli()}
}
