package terraform

import (
	"regexp"

	"github.com/ahrav/terrabench/internal/domain"
)

// Action markers in rendered plan output. Counting marker lines matches the
// summary line Terraform prints and also works when the summary is absent,
// such as a plan with no changes.
var (
	createRe  = regexp.MustCompile(`will be created`)
	updateRe  = regexp.MustCompile(`will be updated in-place`)
	destroyRe = regexp.MustCompile(`will be destroyed`)
	replaceRe = regexp.MustCompile(`must be replaced`)
)

// parseDelta counts planned resource actions from `terraform show` output.
// A replacement counts as both a destroy and a create.
func parseDelta(rendered string) domain.ResourceDelta {
	replacements := len(replaceRe.FindAllString(rendered, -1))
	return domain.ResourceDelta{
		ToCreate:  len(createRe.FindAllString(rendered, -1)) + replacements,
		ToModify:  len(updateRe.FindAllString(rendered, -1)),
		ToDestroy: len(destroyRe.FindAllString(rendered, -1)) + replacements,
	}
}

// PlanHasChanges reports whether a plan delta proposes any action. Read
// tasks use it to reject plans that would mutate infrastructure.
func PlanHasChanges(d domain.ResourceDelta) bool {
	return d.ToCreate > 0 || d.ToModify > 0 || d.ToDestroy > 0
}
