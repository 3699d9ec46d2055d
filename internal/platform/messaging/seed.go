package messaging

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// World describes the initial content of an in-memory platform. It is read
// from a YAML or JSON file by LoadWorld.
type World struct {
	LoginCode string       `mapstructure:"login_code"`
	Users     []WorldUser  `mapstructure:"users"`
	Groups    []WorldGroup `mapstructure:"groups"`
}

// WorldUser is a user entry of a World.
type WorldUser struct {
	ID              int64  `mapstructure:"id"`
	FirstName       string `mapstructure:"first_name"`
	LastName        string `mapstructure:"last_name"`
	Username        string `mapstructure:"username"`
	Phone           string `mapstructure:"phone"`
	Bot             bool   `mapstructure:"bot"`
	Status          string `mapstructure:"status"`
	LastSeenDaysAgo int    `mapstructure:"last_seen_days_ago"`
}

// WorldGroup is a group entry of a World.
type WorldGroup struct {
	Ref           string  `mapstructure:"ref"`
	Title         string  `mapstructure:"title"`
	Kind          string  `mapstructure:"kind"`
	Members       []int64 `mapstructure:"members"`
	Senders       []int64 `mapstructure:"senders"`
	AdminRequired bool    `mapstructure:"admin_required"`
}

// LoadWorld reads a World from path. The format is inferred from the file
// extension.
func LoadWorld(path string) (World, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return World{}, fmt.Errorf("failed to read platform seed %s: %w", path, err)
	}
	var w World
	if err := v.Unmarshal(&w); err != nil {
		return World{}, fmt.Errorf("failed to decode platform seed %s: %w", path, err)
	}
	return w, nil
}

// Seed loads w into the platform.
func (p *Platform) Seed(w World) error {
	now := p.now()
	if w.LoginCode != "" {
		p.mu.Lock()
		p.loginCode = w.LoginCode
		p.mu.Unlock()
	}
	for _, u := range w.Users {
		status, err := parseStatus(u.Status, u.LastSeenDaysAgo, now)
		if err != nil {
			return fmt.Errorf("invalid user %d: %w", u.ID, err)
		}
		p.AddUser(User{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Username:  u.Username,
			Phone:     u.Phone,
			Bot:       u.Bot,
			Status:    status,
		})
	}
	for _, g := range w.Groups {
		kind := KindChannel
		switch strings.ToLower(g.Kind) {
		case "", "channel", "supergroup":
		case "group", "basic":
			kind = KindBasicGroup
		default:
			return fmt.Errorf("invalid group %s: unknown kind %q", g.Ref, g.Kind)
		}
		p.AddGroup(g.Ref, g.Title, kind, g.Members...)
		p.PostMessages(g.Ref, g.Senders...)
		if g.AdminRequired {
			p.RequireAdminForListing(g.Ref)
		}
	}
	return nil
}

func parseStatus(s string, daysAgo int, now time.Time) (UserStatus, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return UserStatus{Kind: StatusUnknown}, nil
	case "online":
		return UserStatus{Kind: StatusOnline}, nil
	case "offline":
		return UserStatus{Kind: StatusOffline, WasOnline: now.AddDate(0, 0, -daysAgo)}, nil
	case "recently":
		return UserStatus{Kind: StatusRecently}, nil
	case "last_week":
		return UserStatus{Kind: StatusLastWeek}, nil
	case "last_month":
		return UserStatus{Kind: StatusLastMonth}, nil
	case "long_ago":
		return UserStatus{Kind: StatusLongAgo}, nil
	default:
		return UserStatus{}, fmt.Errorf("unknown status %q", s)
	}
}
