package world

import "errors"

var (
	ErrSessionNotFound = errors.New("сессия не найдена")
	ErrSessionExists   = errors.New("сессия уже существует")
	ErrSessionStopped  = errors.New("сессия остановлена")
	ErrInboxFull       = errors.New("очередь команд сессии переполнена")
	ErrPlayerNotFound  = errors.New("игрок не найден")
)
