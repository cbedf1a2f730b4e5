package embedding

import (
	"errors"
	"net/http"
	"strings"

	"TicketBlitz_Recommendation/backend/go/pkg/rotation"

	openai "github.com/meguminnnnnnnnn/go-openai"
	ollama "github.com/ollama/ollama/api"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// authSignatures 是在错误文本中出现即视为凭证问题的片段。
var authSignatures = []string{
	"API_KEY_INVALID",
	"API key expired",
	"401",
	"403",
	"PERMISSION_DENIED",
}

// ClassifyFailure 判断一次模型调用失败是凭证问题 (AuthFailure) 还是其他问题 (ProviderFailure)。
// 先检查各 SDK 的结构化错误，最后退回到错误文本匹配。
// llm 包的 AI 层凭证也使用同一个分类器。
func ClassifyFailure(err error) rotation.Kind {
	if err == nil {
		return rotation.KindProvider
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && isAuthStatus(gErr.Code) {
		return rotation.KindAuth
	}
	if st, ok := status.FromError(err); ok {
		if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
			return rotation.KindAuth
		}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
		return rotation.KindAuth
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
		return rotation.KindAuth
	}
	var olErr ollama.StatusError
	if errors.As(err, &olErr) && isAuthStatus(olErr.StatusCode) {
		return rotation.KindAuth
	}

	msg := err.Error()
	for _, sig := range authSignatures {
		if strings.Contains(msg, sig) {
			return rotation.KindAuth
		}
	}
	return rotation.KindProvider
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
