package schema

// Category identifies the listing state derived from the source export.
// Sold comes from the recent-sales export, ForSale from the for-sale
// export, and the for-rent export splits into ForLease (active listing)
// and AlreadyLeased.
type Category int

const (
	Sold Category = iota
	ForSale
	ForLease
	AlreadyLeased
)

// String returns the label written to the output Type column.
func (c Category) String() string {
	switch c {
	case Sold:
		return "Sold"
	case ForSale:
		return "For Sale"
	case ForLease:
		return "For Lease"
	case AlreadyLeased:
		return "Already Leased"
	default:
		return "Unknown"
	}
}

// HasSaleColumns reports whether the sold-only column block applies.
func (c Category) HasSaleColumns() bool { return c == Sold }

// HasListingColumns reports whether the for-sale-only column block applies.
func (c Category) HasListingColumns() bool { return c == ForSale }

// HasRentalColumns reports whether the for-rent-only column block applies.
func (c Category) HasRentalColumns() bool { return c == ForLease || c == AlreadyLeased }

// HasMarketColumns reports whether Days on Market / Active Listing apply.
// They are shared by the for-sale and for-rent exports but not sales.
func (c Category) HasMarketColumns() bool { return c != Sold }
