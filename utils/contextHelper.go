package utils

import (
	"context"

	"github.com/mmdatafocus/distributor_backend/appctx"
)

var (
	ContextKeyCorrelationId  = appctx.ContextKeyCorrelationId
	ContextKeySnapshotSource = appctx.ContextKeySnapshotSource
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetSnapshotSourceFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeySnapshotSource)
}

func SetSnapshotSourceInContext(ctx context.Context, source string) context.Context {
	return appctx.Set(ctx, ContextKeySnapshotSource, source)
}
