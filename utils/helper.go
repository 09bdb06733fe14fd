package utils

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/praccloud/ledger_backend/config"
	"gorm.io/gorm"
)

var mutex sync.Mutex

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	keys := make(map[T]bool)
	list := []T{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// get type name of struct
func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// GetSequence allocates the next per-tenant sequence number for model T.
// The redis counter is the fast path; when redis is not configured the
// database max is used under an in-process mutex. Uniqueness is re-checked
// against the db either way, so a stale counter self-heals.
func GetSequence[T any](ctx context.Context, tenantId string) (int64, error) {
	return GetSequenceTx[T](config.GetDB(), ctx, tenantId)
}

// GetSequenceTx is GetSequence with the database reads routed through db.
// Callers holding an open transaction must pass it here: reaching for the
// global connection while the transaction holds write locks deadlocks on
// sqlite and reads stale rows on mysql.
func GetSequenceTx[T any](db *gorm.DB, ctx context.Context, tenantId string) (int64, error) {
	var model T
	mutex.Lock()
	defer mutex.Unlock()
	cacheKey := tenantId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	var seqNo int64
	var err error

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// not found in redis (or redis absent): seed from db max
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("tenant_id = ?", tenantId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		var taken int64
		if err := db.WithContext(ctx).Model(&model).
			Where("tenant_id = ? AND sequence_no = ?", tenantId, seqNo).
			Count(&taken).Error; err != nil {
			return 0, err
		}
		if taken == 0 {
			break
		}
	}
	return seqNo, nil
}

// ProcessValidationErrors flattens binding validation failures into a
// field -> failed-rule map for the API response. Returns nil when err is not
// a validation error.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// date-range helpers for report defaults

func StartOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
