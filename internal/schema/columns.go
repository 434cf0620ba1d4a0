package schema

// Output column positions. The merged sheet always carries exactly these
// 58 columns in this order; PropertyRow.Cells renders to this layout.
const (
	ColType = iota
	ColPropertyPhoto
	ColStreetAddress
	ColSuburb
	ColState
	ColPostcode
	ColSiteZoning
	ColPropertyType
	ColBed
	ColBath
	ColCar
	ColExtraCostParks
	ColLandSize
	ColFloorSize
	ColYearBuilt
	ColAgency
	ColAgent
	ColContactPhone
	ColEmail
	ColContacted
	ColLandUse
	ColDevelopmentZone
	ColParcelDetails
	ColOwnerType
	ColWebsiteLink
	ColSalePrice
	ColSaleDate
	ColSettlementDate
	ColSaleType
	ColOwner1
	ColOwner2
	ColOwner3
	ColVendor1
	ColVendor2
	ColVendor3
	ColFirstListedPrice
	ColFirstListedDate
	ColLastListedPrice
	ColLastListedDate
	ColListingType
	ColFirstRentalPrice
	ColFirstRentalDate
	ColLastRentalPrice
	ColLastRentalDate
	ColOutgoingsExGST
	ColTotalLeasePrice
	ColDaysOnMarket
	ColActiveListing
	ColComments
	ColDateAdded
	ColDatePresented
	ColAllowableUse
	ColPricePerSqm
	ColAvailable
	ColSuitable
	ColPutInReport
	ColClientFeedback
	ColBusiComment

	// ColumnCount is the fixed output schema width.
	ColumnCount
)

var headers = []string{
	"Type", "Property Photo", "Street Address", "Suburb", "State", "Postcode",
	"Site Zoning", "Property Type", "Bed", "Bath", "Car", "Extra Cost for Parks", "Land Size (m²)",
	"Floor Size (m²)", "Year Built", "Agency", "Agent", "Contact Phone", "Email",
	"Contacted (T/F)", "Land Use", "Development Zone", "Parcel Details", "Owner Type",
	"Website Link",
	// Sold listings only
	"Sale Price", "Sale Date", "Settlement Date", "Sale Type", "Owner 1 Name",
	"Owner 2 Name", "Owner 3 Name", "Vendor 1 Name", "Vendor 2 Name", "Vendor 3 Name",
	// For-sale listings only
	"First Listed Price", "First Listed Date", "Last Listed Price", "Last Listed Date",
	"Listing Type",
	// For-rent listings only
	"First Rental Price", "First Rental Date", "Last Rental Price", "Last Rental Date",
	"Outgoings Ex GST", "Total Lease Price (Base + Outgoings)",
	// For-sale and for-rent listings
	"Days on Market", "Active Listing",
	// Manual and downstream-enrichment columns
	"Comments Y=Recommended, E=Evaluating, R=Rejected", "Date Added", "Date Presented",
	"Allowable Use in Zone (T/F)", "$/m²", "Available (T/F)", "Suitable (T/F)",
	"PUT IN REPORT (T/F)", "Client Feedback", "Busi's Comment",
}

// Headers returns the ordered output column headers.
func Headers() []string {
	out := make([]string, len(headers))
	copy(out, headers)
	return out
}
