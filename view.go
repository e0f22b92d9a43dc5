package minimap

import "sync"

// StaticView is a ViewSource over a fixed world whose viewer position can be
// moved by an input handler while the render loop is running.
type StaticView struct {
	sync.RWMutex

	world World
	x     int
	z     int
}

func NewStaticView(world World, x, z int) *StaticView {
	return &StaticView{
		world: world,
		x:     x,
		z:     z,
	}
}

func (v *StaticView) MoveTo(x, z int) {
	v.Lock()
	defer v.Unlock()
	v.x, v.z = x, z
}

func (v *StaticView) View() (View, error) {
	v.RLock()
	defer v.RUnlock()
	if v.world == nil {
		return View{}, ErrNoView
	}
	return View{World: v.world, X: v.x, Z: v.z}, nil
}
