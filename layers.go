package aurora

// Layer is an engine subsystem updated once per frame.
type Layer interface {
	Name() string
	OnAttach()
	OnDetach()
	OnUpdate(dt float32)
}

// LayerStack keeps regular layers in front of overlays. Overlays are updated
// last.
type LayerStack struct {
	layers       []Layer
	firstOverlay int
}

// PushLayer inserts layer after the existing regular layers and attaches it.
func (s *LayerStack) PushLayer(layer Layer) {
	if layer == nil {
		return
	}
	s.layers = append(s.layers, nil)
	copy(s.layers[s.firstOverlay+1:], s.layers[s.firstOverlay:])
	s.layers[s.firstOverlay] = layer
	s.firstOverlay++
	layer.OnAttach()
}

func (s *LayerStack) PushOverlay(overlay Layer) {
	if overlay == nil {
		return
	}
	s.layers = append(s.layers, overlay)
	overlay.OnAttach()
}

// PopLayer detaches and removes a regular layer. It reports whether layer
// was found.
func (s *LayerStack) PopLayer(layer Layer) bool {
	for i := 0; i < s.firstOverlay; i++ {
		if s.layers[i] == layer {
			layer.OnDetach()
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			s.firstOverlay--
			return true
		}
	}
	return false
}

func (s *LayerStack) PopOverlay(overlay Layer) bool {
	for i := s.firstOverlay; i < len(s.layers); i++ {
		if s.layers[i] == overlay {
			overlay.OnDetach()
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

func (s *LayerStack) Update(dt float32) {
	for _, layer := range s.layers {
		layer.OnUpdate(dt)
	}
}

// Layers returns the stack in update order. The slice must not be modified.
func (s *LayerStack) Layers() []Layer {
	return s.layers
}

func (s *LayerStack) Len() int {
	return len(s.layers)
}

// DetachAll detaches everything, last pushed first, and empties the stack.
func (s *LayerStack) DetachAll() {
	for i := len(s.layers) - 1; i >= 0; i-- {
		s.layers[i].OnDetach()
	}
	s.layers = nil
	s.firstOverlay = 0
}
