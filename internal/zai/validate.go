package zai

import (
	"fmt"

	"github.com/kittinan/git-soul/internal/models"
)

// Validate håndhever skjemaet fra systemprompten: alle toppnivåfelter
// til stede, alle seks trekk innenfor [0,1], og komplett
// visualiseringsblokk med alle tre farger.
func Validate(result *models.PersonalityResult) error {
	if result.Traits == nil {
		return fmt.Errorf("%w: mangler feltet traits", ErrSchemaViolation)
	}
	if result.Visualization == nil {
		return fmt.Errorf("%w: mangler feltet visualization", ErrSchemaViolation)
	}
	if result.Description == nil {
		return fmt.Errorf("%w: mangler feltet description", ErrSchemaViolation)
	}
	if result.Tags == nil {
		return fmt.Errorf("%w: mangler feltet tags", ErrSchemaViolation)
	}
	if result.Insights == nil {
		return fmt.Errorf("%w: mangler feltet insights", ErrSchemaViolation)
	}

	for _, name := range models.TraitNames {
		value, ok := result.Trait(name)
		if !ok {
			return fmt.Errorf("%w: mangler trekket %s", ErrSchemaViolation, name)
		}
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: ugyldig trekkverdi %s=%v (må være i [0,1])", ErrSchemaViolation, name, value)
		}
	}

	if result.Visualization.Colors == nil {
		return fmt.Errorf("%w: visualization mangler colors", ErrSchemaViolation)
	}
	if result.Visualization.Shape == nil {
		return fmt.Errorf("%w: visualization mangler shape", ErrSchemaViolation)
	}
	for _, color := range []string{"primary", "secondary", "accent"} {
		if _, ok := result.Visualization.Colors[color]; !ok {
			return fmt.Errorf("%w: colors mangler %s", ErrSchemaViolation, color)
		}
	}

	return nil
}
