// Package apperr - типизированные ошибки приложения и их представление для клиента.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError - ввод не прошёл проверку; до сети дело не доходит.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Invalid короткий конструктор ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// GatewayRejection - платёжный шлюз отклонил операцию. Message показывается пользователю как есть.
type GatewayRejection struct {
	Status  int
	Message string
	Body    []byte
}

func (e *GatewayRejection) Error() string {
	return fmt.Sprintf("gateway rejected (%d): %s", e.Status, e.Message)
}

// ConfigurationError - не задан секрет окружения. Key пишется только в лог.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return "configuration: missing " + e.Key
}

// NotConfigured короткий конструктор ConfigurationError.
func NotConfigured(key string) error {
	return &ConfigurationError{Key: key}
}

// NetworkError - сбой сети или таймаут при обращении к внешнему сервису.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError - сущность не найдена или не принадлежит пользователю.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + ": not found"
}

// NotFound короткий конструктор NotFoundError.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// ConflictError - операция уже выполняется (повторная отправка формы).
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IsNotFound сообщает, что err (или обёрнутая в нём ошибка) - NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Result - структурированная ошибка для слоя представления.
type Result struct {
	Code     string `json:"erro"`
	Message  string `json:"mensagem"`
	Field    string `json:"campo,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const genericUnavailable = "Serviço temporariamente indisponível. Tente novamente mais tarde."

// ToResult сопоставляет ошибку HTTP-статусу и телу ответа.
func ToResult(err error) (int, Result) {
	var (
		ve *ValidationError
		gr *GatewayRejection
		ce *ConfigurationError
		ne *NetworkError
		nf *NotFoundError
		cf *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, Result{Code: "validacao", Message: ve.Message, Field: ve.Field}
	case errors.As(err, &gr):
		status := gr.Status
		if status < 400 || status > 599 {
			status = http.StatusPaymentRequired
		}
		return status, Result{Code: "pagamento_recusado", Message: gr.Message}
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable, Result{Code: "configuracao", Message: genericUnavailable}
	case errors.As(err, &ne):
		return http.StatusBadGateway, Result{Code: "rede", Message: "Falha de comunicação. Verifique sua conexão e tente novamente."}
	case errors.As(err, &nf):
		return http.StatusNotFound, Result{Code: "nao_encontrado", Message: "Registro não encontrado.", Redirect: "/dashboard"}
	case errors.As(err, &cf):
		return http.StatusConflict, Result{Code: "em_andamento", Message: cf.Message}
	default:
		return http.StatusInternalServerError, Result{Code: "interno", Message: "Erro interno. Tente novamente."}
	}
}
