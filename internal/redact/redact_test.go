package redact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daesung-dev/anshim/internal/redact"
)

func TestDetectAndMask(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		want     string
		detected bool
	}

	tests := []testCase{
		{
			name:     "MobileNumber",
			input:    "call me at 010-1234-5678",
			want:     "call me at ******",
			detected: true,
		},
		{
			name:     "MobileNumberNoSeparators",
			input:    "연락처는 01012345678 입니다",
			want:     "연락처는 ****** 입니다",
			detected: true,
		},
		{
			name:     "SeoulLandline",
			input:    "사무실 02-555-1234 로 전화주세요",
			want:     "사무실 ****** 로 전화주세요",
			detected: true,
		},
		{
			name:     "InternationalForm",
			input:    "reach me on +82 10-1234-5678 anytime",
			want:     "reach me on ****** anytime",
			detected: true,
		},
		{
			name:     "FullWidthDigits",
			input:    "번호는 ０１０-１２３４-５６７８ 입니다",
			want:     "번호는 ****** 입니다",
			detected: true,
		},
		{
			name:     "Email",
			input:    "send the file to kim.designer@example.co.kr please",
			want:     "send the file to ****** please",
			detected: true,
		},
		{
			name:     "OpenChatLink",
			input:    "join https://open.kakao.com/o/gAbCdEf for updates",
			want:     "join ****** for updates",
			detected: true,
		},
		{
			name:     "OpenChatLinkWithoutScheme",
			input:    "open.kakao.com/o/gAbCdEf 로 오세요",
			want:     "****** 로 오세요",
			detected: true,
		},
		{
			name:     "KakaoIDPhrase",
			input:    "카톡 아이디: design_kim 으로 연락주세요",
			want:     "****** 으로 연락주세요",
			detected: true,
		},
		{
			name:     "KakaoIDPhraseLatin",
			input:    "kakao id: design_kim",
			want:     "******",
			detected: true,
		},
		{
			name:     "MessengerHandle",
			input:    "find me @design_kim on there",
			want:     "find me ****** on there",
			detected: true,
		},
		{
			name:     "ShortHandleIgnored",
			input:    "meeting @2pm tomorrow",
			want:     "meeting @2pm tomorrow",
			detected: false,
		},
		{
			name:     "PunctuationOnly",
			input:    "the design is 90% done",
			want:     "the design is 90% done",
			detected: false,
		},
		{
			name:     "MultipleSpans",
			input:    "010-1234-5678 or kim@example.com",
			want:     "****** or ******",
			detected: true,
		},
		{
			name:     "CleanText",
			input:    "시안 확인 부탁드립니다. 수정사항 있으면 말씀해주세요.",
			want:     "시안 확인 부탁드립니다. 수정사항 있으면 말씀해주세요.",
			detected: false,
		},
		{
			name:     "PlainAmountNotAPhoneNumber",
			input:    "the budget is 1000000 won",
			want:     "the budget is 1000000 won",
			detected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, detected := redact.DetectAndMask(tt.input)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.detected, detected)
		})
	}
}

// Masked output must never trip detection again, so re-scanning a stored
// message is always a no-op.
func TestDetectAndMask_Idempotent(t *testing.T) {
	inputs := []string{
		"call me at 010-1234-5678",
		"send the file to kim.designer@example.co.kr please",
		"카톡 아이디: design_kim 으로 연락주세요",
		"find me @design_kim on there",
	}

	for _, input := range inputs {
		masked, detected := redact.DetectAndMask(input)
		assert.True(t, detected)

		again, detectedAgain := redact.DetectAndMask(masked)
		assert.False(t, detectedAgain)
		assert.Equal(t, masked, again)
	}
}
