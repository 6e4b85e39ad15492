// Package game implements the pure rules of the shared board-game economy:
// the static property catalog, room genesis, the request decision function
// and the direct arbiter operations. Every function in this package operates
// on a GameState it was handed and performs no I/O; the transactional applier
// in the app package invokes them inside its atomic-commit boundary.
package game

import "github.com/anoskuns/Ignite-History/internal/models"

const (
	// InitialBalance is the stake every player starts (and resets) with.
	InitialBalance = 200
	// SalaryAmount is the fixed grant of a SALARY request when the request
	// does not carry an explicit amount.
	SalaryAmount = 200
	// TaxRate is the fraction of a player's balance deducted by the arbiter
	// tax action.
	TaxRate = 0.15
	// MaxLevel is the terminal property level.
	MaxLevel = 3
)

// Catalog returns the static board catalog. Every room is instantiated from
// these entries at genesis and they are never added to or removed afterwards.
// Toll values are indexed by level: base, then levels 1 through 3.
func Catalog() []models.Property {
	return []models.Property{
		{ID: "p1", Name: "Phong Châu", Price: 40, TollValues: [4]int{2, 10, 50, 200}, UpgradeCost: 40},
		{ID: "p2", Name: "Cổ Loa", Price: 40, TollValues: [4]int{2, 10, 50, 200}, UpgradeCost: 40},
		{ID: "p3", Name: "Hoa Lư", Price: 60, TollValues: [4]int{4, 25, 100, 400}, UpgradeCost: 60},
		{ID: "p4", Name: "Thăng Long", Price: 80, TollValues: [4]int{6, 40, 150, 550}, UpgradeCost: 50},
		{ID: "p5", Name: "Thiên Trường", Price: 100, TollValues: [4]int{8, 50, 180, 600}, UpgradeCost: 80},
		{ID: "p6", Name: "Vân Đồn", Price: 100, TollValues: [4]int{8, 50, 180, 600}, UpgradeCost: 80},
		{ID: "p7", Name: "Lam Kinh", Price: 120, TollValues: [4]int{10, 60, 220, 750}, UpgradeCost: 100},
		{ID: "p8", Name: "Văn Miếu", Price: 140, TollValues: [4]int{12, 80, 250, 900}, UpgradeCost: 100},
		{ID: "p9", Name: "Phố Hiến", Price: 160, TollValues: [4]int{14, 90, 300, 900}, UpgradeCost: 120},
		{ID: "p10", Name: "Hội An", Price: 160, TollValues: [4]int{14, 90, 300, 900}, UpgradeCost: 120},
		{ID: "p11", Name: "Phú Xuân", Price: 180, TollValues: [4]int{16, 100, 350, 1000}, UpgradeCost: 140},
		{ID: "p12", Name: "Kinh Thành Huế", Price: 200, TollValues: [4]int{18, 120, 400, 1100}, UpgradeCost: 150},
		{ID: "p13", Name: "Chùa Thiên Mụ", Price: 220, TollValues: [4]int{22, 140, 450, 1200}, UpgradeCost: 150},
		{ID: "p14", Name: "Ba Đình", Price: 240, TollValues: [4]int{24, 150, 500, 1200}, UpgradeCost: 180},
		{ID: "p15", Name: "Điện Biên", Price: 240, TollValues: [4]int{24, 150, 500, 1200}, UpgradeCost: 180},
		{ID: "p16", Name: "Dinh Độc Lập", Price: 260, TollValues: [4]int{28, 180, 600, 1400}, UpgradeCost: 200},
		{ID: "p17", Name: "Trường Sa", Price: 300, TollValues: [4]int{35, 200, 700, 1500}, UpgradeCost: 250},
		{ID: "p18", Name: "Hoàng Sa", Price: 300, TollValues: [4]int{35, 200, 700, 1500}, UpgradeCost: 250},
		{ID: "p19", Name: "Hà Nội (Mới)", Price: 350, TollValues: [4]int{50, 250, 800, 2000}, UpgradeCost: 250},
	}
}
