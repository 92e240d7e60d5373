package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Authority 负责签发和校验主持人凭证。pepper 在构造时注入，
// 避免散落在各处的全局读取。
type Authority struct {
	pepper []byte
}

func NewAuthority(pepper string) (*Authority, error) {
	if pepper == "" {
		return nil, errors.New("host token pepper is empty")
	}
	return &Authority{pepper: []byte(pepper)}, nil
}

// Issue 生成 256 位随机凭证（hex 编码）及其带 pepper 的摘要。
// 服务端只保存摘要，明文仅在创建房间的响应里出现一次。
func (a *Authority) Issue() (token, digest string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, a.digest(token), nil
}

// Verify 重新计算候选凭证的摘要并与存储值做常数时间比较，
// 长度不同也不会提前返回。
func (a *Authority) Verify(candidate, storedDigest string) bool {
	return hmac.Equal([]byte(a.digest(candidate)), []byte(storedDigest))
}

func (a *Authority) digest(token string) string {
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// BearerToken 从 Authorization 头中取出 bearer 凭证。
func BearerToken(header string) (string, bool) {
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	if token == "" {
		return "", false
	}
	return token, true
}
