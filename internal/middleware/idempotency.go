package middleware

import (
	"bytes"    // Response capture
	"errors"   // Error comparison
	"net/http" // HTTP status codes

	"bebamart/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// IdempotencyHeader names the client-chosen key of a retriable request
const IdempotencyHeader = "Idempotency-Key"

// Idempotency replays the stored response when an authenticated user repeats
// a POST with the same Idempotency-Key. Other requests pass through. Server
// errors are not stored so the client may retry them.
func Idempotency(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		userID, ok := UserID(c)
		if key == "" || !ok || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > 128 {
			abort(c, http.StatusBadRequest, "validation_error", "Idempotency-Key is too long")
			return
		}
		conn := db.WithContext(c.Request.Context())

		var record domain.IdempotencyRecord
		err := conn.Where(&domain.IdempotencyRecord{UserID: userID, Key: key}).First(&record).Error
		switch {
		case err == nil:
			replay(c, &record)
			return
		case !errors.Is(err, gorm.ErrRecordNotFound):
			abort(c, http.StatusInternalServerError, "internal", "Failed to check idempotency key")
			return
		}

		// Claim the key before running the handler; a concurrent duplicate
		// fails on the unique index.
		record = domain.IdempotencyRecord{
			UserID: userID,
			Key:    key,
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
		}
		if err := conn.Create(&record).Error; err != nil {
			abort(c, http.StatusConflict, "request_in_progress", "A request with this Idempotency-Key is in progress")
			return
		}

		// Release the claim unless a response gets stored, including when
		// the handler panics, so the client can retry the key.
		stored := false
		defer func() {
			if stored {
				return
			}
			if err := conn.Delete(&domain.IdempotencyRecord{}, record.ID).Error; err != nil {
				logrus.WithError(err).Warn("Failed to release idempotency key")
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		if err := conn.Model(&domain.IdempotencyRecord{}).Where("id = ?", record.ID).Updates(map[string]any{
			"status":   status,
			"response": recorder.body.String(),
		}).Error; err != nil {
			logrus.WithError(err).Warn("Failed to store idempotent response")
			return
		}
		stored = true
	}
}

func replay(c *gin.Context, record *domain.IdempotencyRecord) {
	if record.Status == 0 {
		abort(c, http.StatusConflict, "request_in_progress", "A request with this Idempotency-Key is in progress")
		return
	}
	if record.Method != c.Request.Method || record.Path != c.Request.URL.Path {
		abort(c, http.StatusBadRequest, "validation_error", "Idempotency-Key was used for a different request")
		return
	}
	c.Header("Idempotent-Replay", "true")
	c.Data(record.Status, "application/json; charset=utf-8", []byte(record.Response))
	c.Abort()
}

// bodyRecorder copies everything written to the client
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
