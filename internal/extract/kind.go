package extract

// Kind identifies which source table a workbook holds. Each kind carries
// its own category mapping and column block.
type Kind int

const (
	KindSales Kind = iota
	KindForSale
	KindForRent
)

func (k Kind) String() string {
	switch k {
	case KindSales:
		return "Sales"
	case KindForSale:
		return "For Sale"
	case KindForRent:
		return "For Rent"
	}
	return "Unknown"
}

// Source is one workbook to extract.
type Source struct {
	Path string
	Kind Kind
}
