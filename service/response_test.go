package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "A consultation costs {consultation_price}.",
			values:   map[string]string{"consultation_price": "$50"},
			want:     "A consultation costs $50.",
		},
		{
			name:     "multiple placeholders",
			template: "Order {order_id} is {order_status}, ETA {order_eta}.",
			values:   map[string]string{"order_id": "12345", "order_status": "processing", "order_eta": "2 days"},
			want:     "Order 12345 is processing, ETA 2 days.",
		},
		{
			name:     "missing key kept as is",
			template: "Call us at {phone}.",
			values:   map[string]string{"email": "hi@example.com"},
			want:     "Call us at {phone}.",
		},
		{
			name:     "no values",
			template: "Hello {name}!",
			values:   nil,
			want:     "Hello {name}!",
		},
		{
			name:     "empty template",
			template: "",
			values:   map[string]string{"x": "y"},
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTemplate(tt.template, tt.values))
		})
	}
}
