package processor_test

import (
	"testing"

	"github.com/imellon/go-investa/internal/service/processor/v1/processor"
	"github.com/stretchr/testify/assert"
)

func TestFormatDurationDays(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, "—"},
		{-3, "—"},
		{1, "1 day"},
		{2, "2 days"},
		{15, "15 days"},
		{29, "29 days"},
		{30, "1 month"},
		{31, "1 month and 1 day"},
		{40, "1 month and 10 days"},
		{60, "2 months"},
		{75, "2 months and 15 days"},
		{365, "12 months and 5 days"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, processor.FormatDurationDays(c.days), "days=%d", c.days)
	}
}
