package permissions

// The closed permission catalog. Business handlers declare these constants;
// the enforcement middleware never sees any other permission names.
const (
	CompaniesRead   = "Companies.Read"
	CompaniesWrite  = "Companies.Write"
	ContactsRead    = "Contacts.Read"
	ContactsWrite   = "Contacts.Write"
	DealsRead       = "Deals.Read"
	DealsWrite      = "Deals.Write"
	DealsMove       = "Deals.Move"
	TasksRead       = "Tasks.Read"
	TasksWrite      = "Tasks.Write"
	ActivitiesRead  = "Activities.Read"
	ActivitiesWrite = "Activities.Write"
	UsersManage     = "Users.Manage"
	SettingsManage  = "Settings.Manage"
)

// Catalog lists every permission in the system.
var Catalog = []string{
	CompaniesRead,
	CompaniesWrite,
	ContactsRead,
	ContactsWrite,
	DealsRead,
	DealsWrite,
	DealsMove,
	TasksRead,
	TasksWrite,
	ActivitiesRead,
	ActivitiesWrite,
	UsersManage,
	SettingsManage,
}

// Role names. Comparison is case-insensitive throughout.
const (
	RoleAdministrator = "administrator"
	RoleManager       = "manager"
	RoleSales         = "sales"
	RoleReadOnly      = "readonly"
)

// rolePermissions maps each role to the permissions it bundles. The
// administrator role grants the full catalog.
var rolePermissions = map[string][]string{
	RoleAdministrator: Catalog,
	RoleManager: {
		CompaniesRead, CompaniesWrite,
		ContactsRead, ContactsWrite,
		DealsRead, DealsWrite, DealsMove,
		TasksRead, TasksWrite,
		ActivitiesRead, ActivitiesWrite,
	},
	RoleSales: {
		CompaniesRead,
		ContactsRead, ContactsWrite,
		DealsRead, DealsWrite, DealsMove,
		TasksRead, TasksWrite,
		ActivitiesRead, ActivitiesWrite,
	},
	RoleReadOnly: {
		CompaniesRead, ContactsRead, DealsRead, TasksRead, ActivitiesRead,
	},
}
