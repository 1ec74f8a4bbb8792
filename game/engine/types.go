package engine

// EdgeKind is the closed set of ways one cell connects to another
type EdgeKind string

const (
	EdgeStart      EdgeKind = "start"
	EdgeAdjacent   EdgeKind = "adjacent"
	EdgeEarthGate  EdgeKind = "earth_gate"
	EdgeAstralGate EdgeKind = "astral_gate"
)

// RoadKind describes the road surface on a cell
type RoadKind string

const (
	NoRoad        RoadKind = ""
	NormalRoad    RoadKind = "normal"
	EnchantedRoad RoadKind = "enchanted"
)

// UnitStatus is the life state of a unit
type UnitStatus string

const (
	UnitAlive UnitStatus = "alive"
	UnitDead  UnitStatus = "dead"
)

// GateEffect names the movement effect a spell grants to a city
type GateEffect string

const (
	NoGate          GateEffect = ""
	EarthGateSpell  GateEffect = "earth_gate"
	AstralGateSpell GateEffect = "astral_gate"
)

const (
	// DoubledMovementPerMove is one full move in doubled movement points
	DoubledMovementPerMove = 2

	// DoubledCostImpassable marks a cell proven impassable during a search
	DoubledCostImpassable = -2

	// LegacyNotReached is the legacy distance value for cells that were never reached
	LegacyNotReached = -1

	// DefaultMaxUnitsPerCell applies when a scenario does not set its own stacking cap
	DefaultMaxUnitsPerCell = 9

	// Validation constants
	MinMapSize          = 3
	MaxMapSize          = 200
	MaxPlanes           = 4
	MaxDoubledMovement  = 100
	MaxUnitsPerStack    = 20
	WebSocketBufferSize = 256
)

// CellResult holds the outcome of a search for one cell
type CellResult struct {
	EdgeKind          EdgeKind    `json:"edge_kind"`
	CameFrom          *Coordinate `json:"came_from,omitempty"`
	Direction         Direction   `json:"direction,omitempty"`
	DoubledCost       int         `json:"doubled_cost"`
	ReachableThisTurn bool        `json:"reachable_this_turn"`
}

// Impassable reports whether the cell was proven impassable
func (r *CellResult) Impassable() bool {
	return r.DoubledCost == DoubledCostImpassable
}

// TerrainCell is the static map knowledge for one cell
type TerrainCell struct {
	TileTypeID   string   `json:"tile_type"`
	MapFeatureID string   `json:"map_feature,omitempty"`
	Road         RoadKind `json:"road,omitempty"`
	Tower        bool     `json:"tower,omitempty"`
	CityOwnerID  int      `json:"city_owner,omitempty"`
	CityName     string   `json:"city_name,omitempty"`
}

// HasCity reports whether a city stands on the cell
func (t TerrainCell) HasCity() bool {
	return t.CityName != ""
}

// Unit is one unit on the overland map
type Unit struct {
	ID                       int        `json:"id"`
	DefinitionID             string     `json:"unit"`
	OwnerID                  int        `json:"owner"`
	Location                 Coordinate `json:"location"`
	Status                   UnitStatus `json:"status"`
	DoubledMovementRemaining int        `json:"doubled_movement_remaining"`
}

// Alive reports whether the unit is still on the map
func (u Unit) Alive() bool {
	return u.Status == UnitAlive
}

// MaintainedSpell is a spell kept active by a player, optionally targeting a city
type MaintainedSpell struct {
	SpellID         string      `json:"spell" yaml:"spell"`
	CastingPlayerID int         `json:"player" yaml:"player"`
	City            *Coordinate `json:"city,omitempty" yaml:"city,omitempty"`
}

// Player is one entry of the player roster
type Player struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Human bool   `json:"human,omitempty" yaml:"human,omitempty"`
}

// Knowledge is the snapshot of map, units and spells a query reads from
type Knowledge struct {
	Terrain *Grid[TerrainCell] `json:"-"`
	Units   []Unit             `json:"units"`
	Spells  []MaintainedSpell  `json:"spells"`
}

// Clone returns a snapshot that shares nothing mutable with the original
func (k *Knowledge) Clone() *Knowledge {
	clone := &Knowledge{
		Units:  append([]Unit(nil), k.Units...),
		Spells: make([]MaintainedSpell, len(k.Spells)),
	}
	if k.Terrain != nil {
		clone.Terrain = k.Terrain.Clone()
	}
	for i, spell := range k.Spells {
		clone.Spells[i] = spell
		if spell.City != nil {
			city := *spell.City
			clone.Spells[i].City = &city
		}
	}
	return clone
}

// MoveHistoryEntry represents a single executed order in the game history
type MoveHistoryEntry struct {
	OrderID     string       `json:"order_id"`
	PlayerID    int          `json:"player_id"`
	UnitIDs     []int        `json:"unit_ids"`
	From        Coordinate   `json:"from"`
	To          Coordinate   `json:"to"`
	Requested   Coordinate   `json:"requested"`
	DoubledCost int          `json:"doubled_cost"`
	Path        []Coordinate `json:"path,omitempty"`
	Turn        int          `json:"turn"`
	Timestamp   int64        `json:"timestamp"`
	Success     bool         `json:"success"`
	MoveNumber  int          `json:"move_number"`
}

// GameState represents the mutable part of a scenario session
type GameState struct {
	Turn        int                `json:"turn"`
	Units       []Unit             `json:"units"`
	Message     string             `json:"message"`
	ConfigName  string             `json:"config_name"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`
}

// FindUnit returns the unit with the given id
func (gs *GameState) FindUnit(id int) (*Unit, bool) {
	for i := range gs.Units {
		if gs.Units[i].ID == id {
			return &gs.Units[i], true
		}
	}
	return nil, false
}
