package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：请求侧错误（校验失败、前置条件不满足、资源不存在、未授权）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                 = 0
	ValidationFailed   = 4000
	PreconditionFailed = 4001
	Unauthorized       = 4010
	Forbidden          = 4030
	ResourceMissing    = 4004
	NotFound           = 4040
	Conflict           = 4090
	RateLimited        = 4290
	SystemError        = 5000
	Unavailable        = 5030
)
