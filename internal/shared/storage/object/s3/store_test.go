package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/report.pdf", want: "user/report.pdf"},
		{name: "simple prefix", prefix: "reports", key: "user/report.pdf", want: "reports/user/report.pdf"},
		{name: "prefix slashes", prefix: "/reports/", key: "/user/report.pdf", want: "reports/user/report.pdf"},
		{name: "empty key", prefix: "reports", key: "", want: "reports"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key))
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	in := &s3.PutObjectInput{}
	applyEncryption(in, "")
	assert.Equal(t, s3types.ServerSideEncryptionAes256, in.ServerSideEncryption)
	assert.Nil(t, in.SSEKMSKeyId)

	in = &s3.PutObjectInput{}
	applyEncryption(in, "kms-123")
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, in.ServerSideEncryption)
	assert.Equal(t, "kms-123", *in.SSEKMSKeyId)
}
