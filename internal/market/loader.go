package market

import "context"

// Loader 负责定位、解析单只标的的历史 K 线。
// 返回错误或空序列都表示“跳过该标的”，由调用方隔离处理。
type Loader interface {
	LoadBars(ctx context.Context, symbol string) (Series, error)
}

// LoaderFunc 让普通函数实现 Loader。
type LoaderFunc func(ctx context.Context, symbol string) (Series, error)

func (f LoaderFunc) LoadBars(ctx context.Context, symbol string) (Series, error) {
	return f(ctx, symbol)
}
