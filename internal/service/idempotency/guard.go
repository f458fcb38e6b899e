package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultGuardTTL = 24 * time.Hour

// Guard выполняет запрос ровно один раз на idempotency-key.
// Повтор с тем же ключом и телом получает сохранённый ответ;
// тот же ключ с другим телом отклоняется.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
}

// GuardOption настраивает Guard.
type GuardOption func(*Guard)

// WithGuardTTL задаёт срок хранения записей.
func WithGuardTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithGuardLogger задаёт logger.
func WithGuardLogger(logger *log.Entry) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard создаёт guard поверх репозитория ключей идемпотентности.
func NewGuard(repo domain.IdempotencyRepository, options ...GuardOption) *Guard {
	g := &Guard{
		repo: repo,
		ttl:  defaultGuardTTL,
	}
	for _, option := range options {
		option(g)
	}
	if g.logger == nil {
		g.logger = log.WithField("component", "idempotency-guard")
	}
	return g
}

// RequestHash считает хэш тела запроса для сверки повторов.
func RequestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Execute выполняет fn под защитой idempotency-key. Возвращает тело и HTTP-статус
// ответа: либо свежие из fn, либо сохранённые от предыдущего выполнения.
// Ошибка fn записывается как failed-исход и повторам не переигрывается:
// финансовая операция не должна молча дублироваться.
func (g *Guard) Execute(key string, requestBody []byte, fn func() ([]byte, int, error)) ([]byte, int, error) {
	if key == "" {
		return nil, 0, domain.ErrIdempotencyKeyRequired
	}
	hash := RequestHash(requestBody)

	_, err := g.repo.CreateProcessing(key, hash, time.Now().UTC().Add(g.ttl))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			return nil, 0, domain.ErrIdempotencyHashMismatch
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			return g.replay(key)
		default:
			return nil, 0, err
		}
	}

	body, status, execErr := fn()
	if execErr != nil {
		if markErr := g.repo.MarkFailed(key, body, status); markErr != nil {
			g.logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency record failed")
		}
		return body, status, execErr
	}

	if markErr := g.repo.MarkDone(key, body, status); markErr != nil {
		g.logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency record done")
	}
	return body, status, nil
}

// replay возвращает сохранённый исход повторного запроса.
func (g *Guard) replay(key string) ([]byte, int, error) {
	record, err := g.repo.Get(key)
	if err != nil {
		return nil, 0, err
	}

	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		// Первый запрос ещё в полёте; дубль отклоняем, а не ждём.
		return nil, 0, domain.ErrIdempotencyKeyAlreadyExists
	default:
		g.logger.WithFields(log.Fields{
			"key":    key,
			"status": record.Status,
		}).Debug("replaying stored idempotent response")
		return record.ResponseBody, record.HTTPStatus, nil
	}
}
