package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                   string
	ID                      string
	Username                string
	Email                   string
	Password                string
	FailedLoginAttempts     string
	LockedUntil             string
	TwoFactorEnabled        string
	TwoFactorSecret         string
	BackupCodes             string
	PasswordResetToken      string
	PasswordResetExpiry     string
	EmailVerificationToken  string
	EmailVerificationExpiry string
	IsEmailVerified         string
	LastLoginAt             string
	CreatedAt               string
	UpdatedAt               string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                   "users.account",
	ID:                      "id",
	Username:                "username",
	Email:                   "email",
	Password:                "passwordhash",
	FailedLoginAttempts:     "failedloginattempts",
	LockedUntil:             "lockeduntil",
	TwoFactorEnabled:        "twofactorenabled",
	TwoFactorSecret:         "twofactorsecret",
	BackupCodes:             "backupcodes",
	PasswordResetToken:      "passwordresettoken",
	PasswordResetExpiry:     "passwordresetexpiry",
	EmailVerificationToken:  "emailverificationtoken",
	EmailVerificationExpiry: "emailverificationexpiry",
	IsEmailVerified:         "isemailverified",
	LastLoginAt:             "lastloginat",
	CreatedAt:               "createdat",
	UpdatedAt:               "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.FailedLoginAttempts,
		t.LockedUntil, t.TwoFactorEnabled, t.TwoFactorSecret, t.BackupCodes,
		t.PasswordResetToken, t.PasswordResetExpiry, t.EmailVerificationToken,
		t.EmailVerificationExpiry, t.IsEmailVerified, t.LastLoginAt,
		t.CreatedAt, t.UpdatedAt,
	}
}
