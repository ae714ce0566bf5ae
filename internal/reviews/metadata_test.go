package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAttributes(t *testing.T) {
	tests := []struct {
		name string
		html string
		want map[string]string
	}{
		{
			name: "labeled blocks",
			html: `<div class="PBK6be">
				<div><span class="RfDO5c">Food</span><span class="RfDO5c"> 5 </span></div>
				<div><span class="RfDO5c">Atmosphere</span><span class="RfDO5c">4</span></div>
				<div><span class="RfDO5c">Lonely</span></div>
			</div>`,
			want: map[string]string{"Food": "5", "Atmosphere": "4"},
		},
		{
			name: "inline bold pairs",
			html: `<div><span><b>Service:</b> Dine in | <b>Meal type:</b> Dinner</span></div>`,
			want: map[string]string{"service_type": "Dine in", "Meal type": "Dinner"},
		},
		{
			name: "colon after the bold key",
			html: `<div><b>Price per person</b>: €20–30</div>`,
			want: map[string]string{"Price per person": "€20–30"},
		},
		{
			name: "nested value markup",
			html: `<div><b>Recommended dishes:</b> <span>Pasta, <i>Tiramisu</i></span></div>`,
			want: map[string]string{"Recommended dishes": "Pasta, Tiramisu"},
		},
		{
			name: "inline service text replaces labeled service score",
			html: `<div class="PBK6be">
				<div><span class="RfDO5c">Service</span><span class="RfDO5c">4</span></div>
			</div>
			<div><b>Service:</b> Dine in</div>`,
			want: map[string]string{"service_type": "Dine in"},
		},
		{
			name: "bold text without a colon is not a pair",
			html: `<div><b>Great</b> place, would come back</div>`,
			want: map[string]string{},
		},
		{
			name: "rejected keys dropped",
			html: `<div><b>Fun:</b> ok <b>Price..:</b> 10</div>`,
			want: map[string]string{},
		},
		{
			name: "inline pass overwrites labeled block",
			html: `<div class="PBK6be"><div><span class="RfDO5c">Food</span><span class="RfDO5c">4</span></div></div>
				<div><b>Food:</b> 5</div>`,
			want: map[string]string{"Food": "5"},
		},
		{
			name: "no metadata",
			html: `<div><span class="wiI7pd">Lovely dinner.</span></div>`,
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			universe := make(Universe)
			set := NewAttributeSet(universe)

			require.NoError(t, ExtractAttributes(tt.html, set))
			assert.Equal(t, tt.want, set.Map())
			assert.Len(t, universe, len(tt.want))
		})
	}
}
