package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"whatsapp:+50212345678", "whatsapp:+****5678"},
		{"+14155238886", "+*******8886"},
		{"whatsapp:123", "whatsapp:***"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskAddress(tt.in), tt.in)
	}
}

func TestHashAddress_Stable(t *testing.T) {
	a := HashAddress("whatsapp:+50212345678")
	assert.Len(t, a, 12)
	assert.Equal(t, a, HashAddress("whatsapp:+50212345678"))
	assert.NotEqual(t, a, HashAddress("whatsapp:+50212345679"))
}
