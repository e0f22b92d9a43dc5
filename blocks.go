package minimap

import (
	"strings"
	"sync"
)

var airBlocks = map[string]struct{}{
	"minecraft:air":            {},
	"minecraft:cave_air":       {},
	"minecraft:void_air":       {},
	"minecraft:light":          {},
	"minecraft:barrier":        {},
	"minecraft:structure_void": {},
}

func IsAirBlock(name string) bool {
	_, ok := airBlocks[name]
	return ok
}

// classicBlockIDs keeps the numeric ids the minimap colors were designed
// around. Anything not listed here is interned past firstDynamicBlockID.
var classicBlockIDs = map[string]int{
	"minecraft:stone":             1,
	"minecraft:grass_block":       2,
	"minecraft:dirt":              3,
	"minecraft:cobblestone":       4,
	"minecraft:oak_planks":        5,
	"minecraft:oak_sapling":       6,
	"minecraft:bedrock":           7,
	"minecraft:water":             9,
	"minecraft:lava":              11,
	"minecraft:sand":              12,
	"minecraft:gravel":            13,
	"minecraft:gold_ore":          14,
	"minecraft:iron_ore":          15,
	"minecraft:coal_ore":          16,
	"minecraft:oak_log":           17,
	"minecraft:oak_leaves":        18,
	"minecraft:sponge":            19,
	"minecraft:glass":             20,
	"minecraft:lapis_ore":         21,
	"minecraft:sandstone":         24,
	"minecraft:white_wool":        35,
	"minecraft:dandelion":         37,
	"minecraft:poppy":             38,
	"minecraft:gold_block":        41,
	"minecraft:iron_block":        42,
	"minecraft:bricks":            45,
	"minecraft:mossy_cobblestone": 48,
	"minecraft:obsidian":          49,
	"minecraft:torch":             50,
	"minecraft:diamond_ore":       56,
	"minecraft:diamond_block":     57,
	"minecraft:farmland":          60,
	"minecraft:redstone_ore":      73,
	"minecraft:snow":              78,
	"minecraft:ice":               79,
	"minecraft:snow_block":        80,
	"minecraft:cactus":            81,
	"minecraft:clay":              82,
	"minecraft:sugar_cane":        83,
	"minecraft:pumpkin":           86,
	"minecraft:netherrack":        87,
	"minecraft:soul_sand":         88,
	"minecraft:glowstone":         89,
	"minecraft:stone_bricks":      98,
	"minecraft:melon":             103,
	"minecraft:mycelium":          110,
	"minecraft:lily_pad":          111,
	"minecraft:nether_bricks":     112,
	"minecraft:end_stone":         121,
	"minecraft:emerald_ore":       129,
	"minecraft:terracotta":        172,
	"minecraft:packed_ice":        174,
	"minecraft:short_grass":       31,
	"minecraft:tall_grass":        31,
	"minecraft:fern":              31,
}

// blockFamilies collapse variants onto the id of their classic member.
var blockFamilies = []struct {
	suffix string
	id     int
}{
	{"_log", 17},
	{"_wood", 17},
	{"_leaves", 18},
	{"_planks", 5},
	{"_wool", 35},
	{"_sapling", 6},
	{"_terracotta", 172},
	{"_ore", 16},
}

const firstDynamicBlockID = 256

// Registry maps block state names to the numeric ids used by the minimap.
type Registry struct {
	sync.RWMutex

	ids   map[string]int
	names map[int]string
	next  int
}

func NewRegistry() *Registry {
	r := &Registry{
		ids:   make(map[string]int),
		names: make(map[int]string),
		next:  firstDynamicBlockID,
	}
	for name, id := range classicBlockIDs {
		r.ids[name] = id
		if existing, ok := r.names[id]; !ok || name < existing {
			r.names[id] = name
		}
	}
	return r
}

// ID returns the numeric id for a block state name, interning unknown names.
func (r *Registry) ID(name string) int {
	if IsAirBlock(name) {
		return 0
	}
	if !strings.Contains(name, ":") {
		name = "minecraft:" + name
	}

	r.RLock()
	id, ok := r.ids[name]
	r.RUnlock()
	if ok {
		return id
	}

	r.Lock()
	defer r.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}

	for _, family := range blockFamilies {
		if strings.HasSuffix(name, family.suffix) {
			r.ids[name] = family.id
			return family.id
		}
	}

	id = r.next
	r.next++
	r.ids[name] = id
	r.names[id] = name
	return id
}

// Name returns the canonical block name for an id.
func (r *Registry) Name(id int) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Names returns a copy of the id to canonical name table.
func (r *Registry) Names() map[int]string {
	r.RLock()
	defer r.RUnlock()
	result := make(map[int]string, len(r.names))
	for id, name := range r.names {
		result[id] = name
	}
	return result
}
