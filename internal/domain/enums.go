package domain

// StoreCategory represents the kind of retail store a reminder targets.
type StoreCategory string

const (
	StoreCategoryConvenience StoreCategory = "convenience"
	StoreCategoryPharmacy    StoreCategory = "pharmacy"
)

func (c StoreCategory) String() string { return string(c) }

func (c StoreCategory) IsValid() bool {
	switch c {
	case StoreCategoryConvenience, StoreCategoryPharmacy:
		return true
	}
	return false
}

// StoreCategories lists all valid categories in declaration order.
func StoreCategories() []StoreCategory {
	return []StoreCategory{StoreCategoryConvenience, StoreCategoryPharmacy}
}
