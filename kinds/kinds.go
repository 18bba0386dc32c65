package kinds

const (
	length   = 64
	idLength = 8
	depthMax = length / idLength
	idMask   = (1 << idLength) - 1
)

func Kind(id uint64, bases ...uint64) uint64 {
	id = id & idMask
	ids := make(map[uint64]struct{})

	for _, base := range bases {
		for j := 0; j < depthMax; j++ {
			baseId := (base >> (idLength * j)) & idMask
			if baseId == 0 {
				break
			}
			if _, ok := ids[baseId]; !ok {
				ids[baseId] = struct{}{}
				id |= baseId << (idLength * len(ids))
			}
		}
	}
	return id
}

// IsKind reports whether kind is, or derives from, any of bases.
func IsKind(kind uint64, bases ...uint64) bool {
	for _, base := range bases {
		baseId := base & idMask
		if kind == baseId {
			return true
		}
		for i := 0; i < depthMax; i++ {
			currentId := (kind >> (idLength * i)) & idMask
			if currentId == baseId {
				return true
			}
		}
	}
	return false
}

var (
	Null = Kind(0)

	// Per-role actions.
	Action  = Kind(1)
	Idle    = Kind(2, Action)
	Move    = Kind(3, Action)
	Tau     = Kind(4, Move)
	Offer   = Kind(5, Move)
	Request = Kind(6, Move)

	// Label shapes.
	Label        = Kind(7)
	OfferLabel   = Kind(8, Label)
	RequestLabel = Kind(9, Label)
	MatchLabel   = Kind(10, Label)
	TauLabel     = Kind(11, Label)
)
