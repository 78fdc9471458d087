package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams     = orz.NewError(10400, "参数无效")
	ErrBrokerUnavailable = orz.NewError(10002, "券商接口不可用")
)
