package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/application/dto"
)

func TestDefaultPage(t *testing.T) {
	cases := []struct {
		in, want dto.PageRequest
	}{
		{dto.PageRequest{}, dto.PageRequest{Limit: dto.DefaultPageLimit}},
		{dto.PageRequest{Limit: 500, Offset: -3}, dto.PageRequest{Limit: dto.MaxPageLimit}},
		{dto.PageRequest{Limit: 5, Offset: 10}, dto.PageRequest{Limit: 5, Offset: 10}},
	}
	for _, tc := range cases {
		p := tc.in
		p.DefaultPage()
		assert.Equal(t, tc.want, p)
	}
}

func TestNewListResponse(t *testing.T) {
	raw, err := json.Marshal(dto.NewListResponse[string](nil, dto.PageRequest{Limit: 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"page":{"limit":2,"offset":0,"has_more":false}}`, string(raw))

	full := dto.NewListResponse([]string{"a", "b"}, dto.PageRequest{Limit: 2, Offset: 4})
	assert.True(t, full.Page.HasMore)
	assert.Equal(t, 4, full.Page.Offset)
}
