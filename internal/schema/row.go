package schema

import "strings"

// Address holds the raw extracted address components. They are copied
// verbatim from the source export and never rewritten; normalization
// happens only on derived matching keys.
type Address struct {
	Street   string
	Suburb   string
	State    string
	Postcode string
}

// Full returns the comma-joined form used as the zoning lookup key and
// duplicate-index key.
func (a Address) Full() string {
	return strings.Join([]string{a.Street, a.Suburb, a.State, a.Postcode}, ", ")
}

// PropertyRow is one listing occurrence in the merged output. Fields map
// one-to-one onto the output columns; Cells renders them in column order.
type PropertyRow struct {
	Category Category
	Address  Address

	PropertyPhoto Field
	SiteZoning    Field
	PropertyType  Field
	Bed           Field
	Bath          Field
	Car           Field
	ExtraCost     Field
	LandSize      Field
	FloorSize     Field
	YearBuilt     Field
	Agency        Field
	Agent         Field
	ContactPhone  Field
	Email         Field
	Contacted     Field
	LandUse       Field
	DevZone       Field
	ParcelDetails Field
	OwnerType     Field
	WebsiteLink   Field

	SalePrice      Field
	SaleDate       Field
	SettlementDate Field
	SaleType       Field
	Owner1         Field
	Owner2         Field
	Owner3         Field
	Vendor1        Field
	Vendor2        Field
	Vendor3        Field

	FirstListedPrice Field
	FirstListedDate  Field
	LastListedPrice  Field
	LastListedDate   Field
	ListingType      Field

	FirstRentalPrice Field
	FirstRentalDate  Field
	LastRentalPrice  Field
	LastRentalDate   Field
	OutgoingsExGST   Field
	TotalLeasePrice  Field

	DaysOnMarket  Field
	ActiveListing Field

	Comments       Field
	DateAdded      Field
	DatePresented  Field
	AllowableUse   Field
	PricePerSqm    Field
	Available      Field
	Suitable       Field
	PutInReport    Field
	ClientFeedback Field
	BusiComment    Field
}

// NewRow builds a row for the given category with every field in its
// initial state: category-inapplicable blocks NotApplicable, enrichment
// and manual columns Unresolved, source-backed columns Unresolved until
// the extractor fills them.
func NewRow(cat Category) PropertyRow {
	r := PropertyRow{Category: cat}

	// Source-backed shared columns and enrichment slots start blank.
	r.PropertyPhoto = Blank()
	r.SiteZoning = Blank()
	r.PropertyType = Blank()
	r.Bed = Blank()
	r.Bath = Blank()
	r.Car = Blank()
	r.ExtraCost = Blank()
	r.LandSize = Blank()
	r.FloorSize = Blank()
	r.YearBuilt = Blank()
	r.Agency = Blank()
	r.Agent = Blank()
	r.ContactPhone = Blank()
	r.Email = Blank()
	r.Contacted = Blank()
	r.LandUse = Blank()
	r.DevZone = Blank()
	r.ParcelDetails = Blank()
	r.OwnerType = Blank()
	r.WebsiteLink = Blank()

	saleState, listState, rentState, marketState := NA(), NA(), NA(), NA()
	if cat.HasSaleColumns() {
		saleState = Blank()
	}
	if cat.HasListingColumns() {
		listState = Blank()
	}
	if cat.HasRentalColumns() {
		rentState = Blank()
	}
	if cat.HasMarketColumns() {
		marketState = Blank()
	}

	r.SalePrice, r.SaleDate, r.SettlementDate, r.SaleType = saleState, saleState, saleState, saleState
	r.Owner1, r.Owner2, r.Owner3 = saleState, saleState, saleState
	r.Vendor1, r.Vendor2, r.Vendor3 = saleState, saleState, saleState

	r.FirstListedPrice, r.FirstListedDate = listState, listState
	r.LastListedPrice, r.LastListedDate = listState, listState
	r.ListingType = listState

	r.FirstRentalPrice, r.FirstRentalDate = rentState, rentState
	r.LastRentalPrice, r.LastRentalDate = rentState, rentState
	r.OutgoingsExGST, r.TotalLeasePrice = rentState, rentState

	r.DaysOnMarket, r.ActiveListing = marketState, marketState

	// Manual-entry columns are blank for every category.
	r.Comments = Blank()
	r.DateAdded = Blank()
	r.DatePresented = Blank()
	r.AllowableUse = Blank()
	r.PricePerSqm = Blank()
	r.Available = Blank()
	r.Suitable = Blank()
	r.PutInReport = Blank()
	r.ClientFeedback = Blank()
	r.BusiComment = Blank()

	return r
}

// Cells renders the row to the fixed 58-column output layout.
func (r PropertyRow) Cells() []string {
	return []string{
		r.Category.String(),
		r.PropertyPhoto.Render(),
		r.Address.Street,
		r.Address.Suburb,
		r.Address.State,
		r.Address.Postcode,
		r.SiteZoning.Render(),
		r.PropertyType.Render(),
		r.Bed.Render(),
		r.Bath.Render(),
		r.Car.Render(),
		r.ExtraCost.Render(),
		r.LandSize.Render(),
		r.FloorSize.Render(),
		r.YearBuilt.Render(),
		r.Agency.Render(),
		r.Agent.Render(),
		r.ContactPhone.Render(),
		r.Email.Render(),
		r.Contacted.Render(),
		r.LandUse.Render(),
		r.DevZone.Render(),
		r.ParcelDetails.Render(),
		r.OwnerType.Render(),
		r.WebsiteLink.Render(),
		r.SalePrice.Render(),
		r.SaleDate.Render(),
		r.SettlementDate.Render(),
		r.SaleType.Render(),
		r.Owner1.Render(),
		r.Owner2.Render(),
		r.Owner3.Render(),
		r.Vendor1.Render(),
		r.Vendor2.Render(),
		r.Vendor3.Render(),
		r.FirstListedPrice.Render(),
		r.FirstListedDate.Render(),
		r.LastListedPrice.Render(),
		r.LastListedDate.Render(),
		r.ListingType.Render(),
		r.FirstRentalPrice.Render(),
		r.FirstRentalDate.Render(),
		r.LastRentalPrice.Render(),
		r.LastRentalDate.Render(),
		r.OutgoingsExGST.Render(),
		r.TotalLeasePrice.Render(),
		r.DaysOnMarket.Render(),
		r.ActiveListing.Render(),
		r.Comments.Render(),
		r.DateAdded.Render(),
		r.DatePresented.Render(),
		r.AllowableUse.Render(),
		r.PricePerSqm.Render(),
		r.Available.Render(),
		r.Suitable.Render(),
		r.PutInReport.Render(),
		r.ClientFeedback.Render(),
		r.BusiComment.Render(),
	}
}
