package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TaggedFence(t *testing.T) {
	response := "Here is the configuration:\n\n```terraform\nprovider \"xenorchestra\" {}\n\nresource \"xenorchestra_vm\" \"web\" {\n  name_label = \"web\"\n}\n```\n\nLet me know how it goes."

	ext := Parse(response)

	require.True(t, ext.HasCode())
	assert.True(t, strings.HasPrefix(ext.Code, `provider "xenorchestra"`))
	assert.Contains(t, ext.Code, "xenorchestra_vm")
	assert.NotContains(t, ext.Code, "```")
}

func TestParse_HCLFence(t *testing.T) {
	response := "```hcl\nresource \"xenorchestra_vm\" \"db\" {}\n```"

	ext := Parse(response)
	require.True(t, ext.HasCode())
	assert.Contains(t, ext.Code, "xenorchestra_vm")
}

func TestParse_BareFenceFallback(t *testing.T) {
	response := "```\nprovider \"xenorchestra\" {}\nresource \"xenorchestra_vm\" \"a\" {}\n```"

	ext := Parse(response)
	require.True(t, ext.HasCode())
	assert.Contains(t, ext.Code, "provider")
}

func TestParse_SkipsNonTerraformFences(t *testing.T) {
	response := "First run this:\n```\nterraform init && terraform apply\n```\nthen this block:\n```terraform\nresource \"xenorchestra_vm\" \"a\" {}\n```"

	ext := Parse(response)
	require.True(t, ext.HasCode())
	assert.Contains(t, ext.Code, "xenorchestra_vm")
	assert.NotContains(t, ext.Code, "&&")
}

func TestParse_UnfencedHCL(t *testing.T) {
	response := `Sure, here is the code:

provider "xenorchestra" {
  url = "ws://localhost:8080"
}

resource "xenorchestra_vm" "vm" {
  name_label = "test"
}

Make sure to set your credentials first.`

	ext := Parse(response)
	require.True(t, ext.HasCode())
	assert.Contains(t, ext.Code, `provider "xenorchestra"`)
	assert.Contains(t, ext.Code, "xenorchestra_vm")
	assert.NotContains(t, ext.Code, "Make sure")
}

func TestParse_NoCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"pure prose", "I would be happy to help once you tell me more."},
		{"fence without terraform content", "```\njust some text\n```"},
		{"empty response", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := Parse(tt.response)
			assert.False(t, ext.HasCode())
			assert.Empty(t, ext.Code)
		})
	}
}

func TestParse_Questions(t *testing.T) {
	t.Run("collects substantial questions", func(t *testing.T) {
		response := "Which template should I use for this virtual machine? " +
			"Also, what amount of memory does the workload actually need?"

		ext := Parse(response)
		require.Len(t, ext.Questions, 2)
		assert.Contains(t, ext.Questions[0], "template")
	})

	t.Run("skips short fragments", func(t *testing.T) {
		ext := Parse("Ready? Here is code.")
		assert.Empty(t, ext.Questions)
	})

	t.Run("caps question count", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 15; i++ {
			sb.WriteString("Could you clarify requirement number something here please? ")
		}

		ext := Parse(sb.String())
		assert.Len(t, ext.Questions, maxQuestions)
	})

	t.Run("questions extracted even when code present", func(t *testing.T) {
		response := "Should the VM boot from the Ubuntu ISO image directly?\n```terraform\nresource \"xenorchestra_vm\" \"a\" {}\n```"

		ext := Parse(response)
		assert.True(t, ext.HasCode())
		assert.NotEmpty(t, ext.Questions)
	})
}
