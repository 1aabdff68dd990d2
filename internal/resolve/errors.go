package resolve

import "fmt"

// InvalidTitleError：标题为空或格式非法，仅影响该单页，用户可修正。
type InvalidTitleError struct {
	Title  string
	Reason string
}

func (e *InvalidTitleError) Error() string {
	return fmt.Sprintf("invalid title %q: %s", e.Title, e.Reason)
}

// TransientFetchError：网络或服务异常，是否重试/跳过由调用方策略决定。
type TransientFetchError struct {
	Title string
	Err   error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Title, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }
