package shared

// Office role names as resolved by the identity gateway.
const (
	RoleAdmin             = "admin"
	RoleFinanceOffice     = "finance-office"
	RoleRecordsOffice     = "records-office"
	RoleTitulationOffice  = "titulation-office"
	RoleLanguagesOffice   = "languages-office"
	RoleInternshipsOffice = "internships-office"
	RoleOutreachOffice    = "outreach-office"
)

// OfficeRoles lists every administrative office involved in the titulation
// workflow. Period activation is announced to all of them.
var OfficeRoles = []string{
	RoleFinanceOffice,
	RoleRecordsOffice,
	RoleTitulationOffice,
	RoleLanguagesOffice,
	RoleInternshipsOffice,
	RoleOutreachOffice,
}
