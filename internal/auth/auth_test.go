package auth

import (
	"strings"
	"testing"
	"time"
)

func TestNewAuthority(t *testing.T) {
	tests := []struct {
		name    string
		pepper  string
		wantErr bool
	}{
		{"valid pepper", "test-pepper", false},
		{"empty pepper", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAuthority(tt.pepper)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAuthority() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && a == nil {
				t.Error("NewAuthority() returned nil authority")
			}
		})
	}
}

func TestAuthority_Issue(t *testing.T) {
	a, err := NewAuthority("test-pepper")
	if err != nil {
		t.Fatalf("NewAuthority() error = %v", err)
	}

	token1, digest1, err := a.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	token2, _, err := a.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// 32 random bytes hex encoded = 64 chars
	if len(token1) != 64 {
		t.Errorf("Issue() token length = %d, want 64", len(token1))
	}
	if len(digest1) != 64 {
		t.Errorf("Issue() digest length = %d, want 64", len(digest1))
	}
	if token1 == token2 {
		t.Error("Issue() should generate unique tokens")
	}
	if token1 == digest1 {
		t.Error("Issue() digest must differ from plaintext token")
	}
}

func TestAuthority_Verify(t *testing.T) {
	a, err := NewAuthority("test-pepper")
	if err != nil {
		t.Fatalf("NewAuthority() error = %v", err)
	}
	token, digest, err := a.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Change a single character of the token
	flipped := "a" + token[1:]
	if token[0] == 'a' {
		flipped = "b" + token[1:]
	}

	tests := []struct {
		name      string
		candidate string
		digest    string
		want      bool
	}{
		{"issued token matches stored digest", token, digest, true},
		{"one-character difference rejected", flipped, digest, false},
		{"empty candidate rejected", "", digest, false},
		{"truncated candidate rejected", token[:32], digest, false},
		{"digest as candidate rejected", digest, digest, false},
		{"empty stored digest rejected", token, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Verify(tt.candidate, tt.digest); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthority_VerifyDifferentPepper(t *testing.T) {
	a1, _ := NewAuthority("pepper-one")
	a2, _ := NewAuthority("pepper-two")

	token, digest, err := a1.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if a2.Verify(token, digest) {
		t.Error("Verify() with a different pepper should reject the digest")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", true},
		{"lowercase scheme", "bearer abc123", "abc123", true},
		{"extra whitespace", "Bearer   abc123  ", "abc123", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"scheme only", "Bearer ", "", false},
		{"scheme without space", "Bearerabc123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			if ok != tt.wantOK {
				t.Errorf("BearerToken() ok = %v, want %v", ok, tt.wantOK)
				return
			}
			if tt.wantOK && got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

// 统计性地检查 Verify 的耗时不随摘要首次不匹配的位置变化。
// 比较本身是常数时间的（hmac.Equal），这里用很宽的界限防回归，
// 避免 CI 抖动造成误报。
func TestVerify_TimingIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("skip timing measurement in short mode")
	}
	authority, err := NewAuthority("test-pepper")
	if err != nil {
		t.Fatalf("NewAuthority() error = %v", err)
	}
	token, digest, err := authority.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	flipHex := func(s string, i int) string {
		b := []byte(s)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}
	early := flipHex(digest, 0)
	late := flipHex(digest, len(digest)-1)
	if authority.Verify(token, early) || authority.Verify(token, late) {
		t.Fatal("Verify() accepted a corrupted digest")
	}

	const rounds = 3000
	var earlyTotal, lateTotal time.Duration
	// 交替测量，摊平时钟漂移
	for i := 0; i < rounds; i++ {
		start := time.Now()
		authority.Verify(token, early)
		earlyTotal += time.Since(start)

		start = time.Now()
		authority.Verify(token, late)
		lateTotal += time.Since(start)
	}

	slow, fast := earlyTotal, lateTotal
	if fast > slow {
		slow, fast = fast, slow
	}
	// 首字节失配与末字节失配的平均耗时应在同一数量级
	if fast > 0 && slow > 4*fast {
		t.Errorf("mismatch-position timing skew: early=%v late=%v", earlyTotal, lateTotal)
	}
}

func TestBearerToken_TrimsOnlySpace(t *testing.T) {
	// strings.TrimSpace 不应吃掉凭证本体
	got, ok := BearerToken("Bearer " + strings.Repeat("f", 64))
	if !ok || len(got) != 64 {
		t.Errorf("BearerToken() = %q, ok=%v", got, ok)
	}
}
