package zai_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/zai"
)

func TestZai(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ZAI Suite")
}

func validResult() *models.PersonalityResult {
	desc := "Ryddig kodebase"
	return &models.PersonalityResult{
		Traits: map[string]float64{
			"complexity":      0.5,
			"creativity":      0.6,
			"maintainability": 0.7,
			"innovation":      0.4,
			"organization":    0.8,
			"performance":     0.5,
		},
		Visualization: &models.Visualization{
			Colors: map[string]string{
				"primary":   "#112233",
				"secondary": "#445566",
				"accent":    "#778899",
			},
			Shape: &models.Shape{Type: "sphere", Complexity: 5, RotationSpeed: 1.0, ParticleCount: 50},
		},
		Description: &desc,
		Tags:        []string{"clean"},
		Insights:    []models.InsightResult{},
	}
}

var _ = Describe("Validate", func() {
	It("skal godta et komplett resultat", func() {
		Expect(zai.Validate(validResult())).To(Succeed())
	})

	It("skal avvise manglende traits", func() {
		r := validResult()
		r.Traits = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))
	})

	It("skal avvise et manglende trekk", func() {
		r := validResult()
		delete(r.Traits, "organization")
		err := zai.Validate(r)
		Expect(err).To(MatchError(zai.ErrSchemaViolation))
		Expect(err.Error()).To(ContainSubstring("organization"))
	})

	It("skal avvise trekkverdier utenfor [0,1]", func() {
		r := validResult()
		r.Traits["complexity"] = 1.5
		err := zai.Validate(r)
		Expect(err).To(MatchError(zai.ErrSchemaViolation))
		Expect(err.Error()).To(ContainSubstring("complexity"))

		r = validResult()
		r.Traits["creativity"] = -0.1
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))
	})

	It("skal godta grenseverdiene 0 og 1", func() {
		r := validResult()
		r.Traits["complexity"] = 0
		r.Traits["performance"] = 1
		Expect(zai.Validate(r)).To(Succeed())
	})

	It("skal avvise manglende visualization og farger", func() {
		r := validResult()
		r.Visualization = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))

		r = validResult()
		delete(r.Visualization.Colors, "accent")
		err := zai.Validate(r)
		Expect(err).To(MatchError(zai.ErrSchemaViolation))
		Expect(err.Error()).To(ContainSubstring("accent"))
	})

	It("skal avvise manglende shape", func() {
		r := validResult()
		r.Visualization.Shape = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))
	})

	It("skal avvise manglende description, tags og insights", func() {
		r := validResult()
		r.Description = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))

		r = validResult()
		r.Tags = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))

		r = validResult()
		r.Insights = nil
		Expect(zai.Validate(r)).To(MatchError(zai.ErrSchemaViolation))
	})
})
