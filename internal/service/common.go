package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner *pgxpool.Pool 即符合
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Clock 測試時可注入固定時間
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// cacheInvalidator 由快取版 EventRepository 實作，交易提交後清除活動快取
type cacheInvalidator interface {
	Invalidate(ctx context.Context, id, slug string)
}
