package web

import (
	"markestedt/cliptrans/pipeline"
)

// Sink broadcasts pipeline events to dashboard clients and tracks the
// agent status
type Sink struct {
	server *Server
}

// Sink returns a pipeline sink bound to the server's hub
func (s *Server) Sink() *Sink {
	return &Sink{server: s}
}

func (k *Sink) emit(e pipeline.Event) {
	msg := EventMessage{
		Activation: e.Activation,
		Kind:       e.Kind.String(),
		Text:       e.Text,
		Score:      e.Score,
	}
	if e.Kind == pipeline.EventFinished {
		msg.Match = e.Match.String()
	}
	k.server.hub.BroadcastMessage(Message{Type: MessageTypeEvent, Data: msg})
}

func (k *Sink) OnLoadingStarted(id string) {
	k.server.beginActivation(id)
	pipeline.EventFunc(k.emit).OnLoadingStarted(id)
}

func (k *Sink) OnSourceKnown(id, text string) {
	pipeline.EventFunc(k.emit).OnSourceKnown(id, text)
}

func (k *Sink) OnChunk(id, text string) {
	pipeline.EventFunc(k.emit).OnChunk(id, text)
}

func (k *Sink) OnFinished(id string, r pipeline.Result) {
	pipeline.EventFunc(k.emit).OnFinished(id, r)
	k.server.endActivation(id)
}

func (k *Sink) OnError(id, message string) {
	pipeline.EventFunc(k.emit).OnError(id, message)
	k.server.endActivation(id)
}
