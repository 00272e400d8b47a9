package enums

import "strings"

// BenefitCategory groups shop benefits for browsing.
type BenefitCategory string

const (
	BenefitCategoryWellness BenefitCategory = "WELLNESS"
	BenefitCategoryFood     BenefitCategory = "FOOD"
	BenefitCategoryTech     BenefitCategory = "TECH"
	BenefitCategoryTimeOff  BenefitCategory = "TIME_OFF"
	BenefitCategoryOther    BenefitCategory = "OTHER"
)

var benefitCategories = newSet("benefit category", strings.ToUpper,
	BenefitCategoryWellness, BenefitCategoryFood, BenefitCategoryTech,
	BenefitCategoryTimeOff, BenefitCategoryOther)

func (c BenefitCategory) String() string { return string(c) }

func (c BenefitCategory) IsValid() bool { return benefitCategories.has(c) }

// ParseBenefitCategory accepts the canonical value in any letter case.
func ParseBenefitCategory(value string) (BenefitCategory, error) {
	return benefitCategories.parse(value)
}
