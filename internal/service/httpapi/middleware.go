package httpapi

import "net/http"

// userIDHeader несёт идентификатор покупателя, проставленный слоем аутентификации
// перед этим сервисом. Пустое значение трактуется как неаутентифицированный запрос.
const userIDHeader = "X-User-ID"

func userIDFrom(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}
