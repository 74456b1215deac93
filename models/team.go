package models

import (
	"strings"
	"time"
)

// TeamStatus соответствует ENUM team_status в БД.
type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "pending"
	TeamStatusApproved TeamStatus = "approved"
	TeamStatusRejected TeamStatus = "rejected"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusPending, TeamStatusApproved, TeamStatusRejected:
		return true
	}
	return false
}

type Team struct {
	ID              int        `json:"id" db:"id"`
	Name            string     `json:"team_name" db:"team_name"`
	CaptainName     string     `json:"captain_name" db:"captain_name"`
	CaptainTelegram string     `json:"captain_telegram" db:"captain_telegram"`
	MembersCount    int        `json:"members_count" db:"members_count"`
	MembersInfo     string     `json:"members_info" db:"members_info"`
	AuthCode        string     `json:"auth_code,omitempty" db:"auth_code"`
	Status          TeamStatus `json:"status" db:"status"`
	AdminComment    *string    `json:"admin_comment,omitempty" db:"admin_comment"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// CountMembers returns the number of non-blank lines in a roster text.
func CountMembers(membersInfo string) int {
	count := 0
	for _, line := range strings.Split(membersInfo, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// AuthCodeLength is the number of significant characters in a team edit code.
const AuthCodeLength = 8

// NormalizeAuthCode strips the REG prefix, dashes and spaces so that codes typed
// by captains in any form compare equal to the stored one.
func NormalizeAuthCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	c = strings.ReplaceAll(c, "-", "")
	c = strings.ReplaceAll(c, " ", "")
	if len(c) == AuthCodeLength+3 && strings.HasPrefix(c, "REG") {
		c = c[3:]
	}
	return c
}

// FormatAuthCode renders a stored code as REG-XXXX-XXXX.
func FormatAuthCode(code string) string {
	c := NormalizeAuthCode(code)
	if len(c) != AuthCodeLength {
		return c
	}
	return "REG-" + c[:4] + "-" + c[4:]
}
