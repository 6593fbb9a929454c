package event

import "github.com/thirdroom/simcore/internal/core/ecs"

// EntityDestroyed is emitted when an entity leaves the world and its id is
// queued in the recycle bin.
type EntityDestroyed struct {
	EntityID ecs.EntityID
	Tick     uint32
}

// EntitiesReleased is emitted when sealed bins are handed back to the
// allocator.
type EntitiesReleased struct {
	Tick      uint32
	Watermark uint32
	Count     int
}
