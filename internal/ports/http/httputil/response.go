package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody é o corpo de uma resposta de erro REST: um objeto plano
// com uma única chave "error", conforme o contrato de fio do serviço.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON codifica data como o corpo da resposta. Não envelopa nada por
// conta própria — cabe a cada handler montar o envelope ({"room":...},
// {"results":...}, ...) exigido pelo contrato de fio antes de chamar
// isto.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error envia um corpo {"error": message} com o status informado.
func Error(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Error: message})
}

// Common error responses

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
