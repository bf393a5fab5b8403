//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/index"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorLoadFailed
	ErrorNotLoaded
	ErrorRenderFailed
)

var (
	session = measuredna.NewSession()
	// pending holds a score loaded before a renderer was attached.
	pending measuredna.ScoreProvider
)

// jsElement colours one rendered note. Objects with a setColor method are
// called directly; anything else is treated as an SVG element.
type jsElement struct {
	v js.Value
}

func (e jsElement) SetColor(color string) {
	if fn := e.v.Get("setColor"); fn.Type() == js.TypeFunction {
		e.v.Call("setColor", color)
		return
	}
	style := e.v.Get("style")
	if style.IsUndefined() {
		return
	}
	style.Call("setProperty", "fill", color)
	style.Call("setProperty", "stroke", color)
}

// jsRenderer adapts {noteElements(n), redraw()} supplied by the page.
type jsRenderer struct {
	v js.Value
}

func (r jsRenderer) NoteElements(measure int) []highlight.Element {
	list := r.v.Call("noteElements", measure)
	if list.IsUndefined() || list.IsNull() {
		return nil
	}
	n := list.Length()
	elements := make([]highlight.Element, n)
	for i := 0; i < n; i++ {
		elements[i] = jsElement{v: list.Index(i)}
	}
	return elements
}

func (r jsRenderer) Redraw() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("redraw: %v", rec)
		}
	}()
	if fn := r.v.Get("redraw"); fn.Type() == js.TypeFunction {
		r.v.Call("redraw")
	}
	return nil
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func makeResponse(data any) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func summary(sc *score.Score, idx *index.Index) js.Value {
	a := measuredna.Summarize(sc, idx, false)
	groups := js.Global().Get("Array").New()
	for i, g := range a.Repeated {
		measures := js.Global().Get("Array").New()
		for j, m := range g.Measures {
			measures.SetIndex(j, m)
		}
		groups.SetIndex(i, measures)
	}
	out := js.Global().Get("Object").New()
	out.Set("title", a.Title)
	out.Set("measures", a.MeasureCount)
	out.Set("groups", groups)
	return out
}

// load parses a MusicXML string. The score is analysed immediately so bad
// input is reported here; it is published once a renderer is attached.
// Args: xml string, optional file name.
func load(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected MusicXML string")
	}
	name := "score.musicxml"
	if len(args) > 1 && args[1].Type() == js.TypeString {
		name = args[1].String()
	}

	sc, err := measuredna.BytesProvider(name, []byte(args[0].String())).LoadScore(context.Background())
	if err != nil {
		return makeErrorResponse(ErrorLoadFailed, err.Error())
	}
	idx, err := index.Analyze(sc)
	if err != nil {
		return makeErrorResponse(ErrorLoadFailed, err.Error())
	}
	pending = measuredna.StaticProvider(sc)
	return makeResponse(summary(sc, idx))
}

// attach installs the page's renderer for the last loaded score, replacing
// whatever score was attached before.
func attach(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "Expected renderer object {noteElements, redraw}")
	}
	if args[0].Get("noteElements").Type() != js.TypeFunction {
		return makeErrorResponse(ErrorInvalidArgs, "renderer.noteElements must be a function")
	}
	if pending == nil {
		return makeErrorResponse(ErrorNotLoaded, "No score loaded")
	}

	renderer := jsRenderer{v: args[0]}
	factory := func(*score.Score) (highlight.Renderer, error) { return renderer, nil }
	loaded, err := session.Load(context.Background(), pending, factory)
	if err != nil {
		return makeErrorResponse(ErrorLoadFailed, err.Error())
	}
	return makeResponse(summary(loaded.Score, loaded.Index))
}

func pointer(enter bool) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 || args[0].Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, "Expected measure number")
		}
		m := args[0].Int()
		var err error
		if enter {
			err = session.PointerEnter(m)
		} else {
			err = session.PointerLeave(m)
		}
		if err != nil {
			return makeErrorResponse(ErrorRenderFailed, err.Error())
		}
		highlighted := js.Global().Get("Array").New()
		for i, hm := range session.Highlighted() {
			highlighted.SetIndex(i, hm)
		}
		return makeResponse(highlighted)
	})
}

func groups(this js.Value, args []js.Value) interface{} {
	loaded := session.Current()
	if loaded == nil {
		return makeErrorResponse(ErrorNotLoaded, "No score attached")
	}
	return makeResponse(summary(loaded.Score, loaded.Index))
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 MeasureDNA WASM module initializing...")
	}

	done := make(chan struct{})

	api := js.Global().Get("Object").New()
	api.Set("load", js.FuncOf(load))
	api.Set("attach", js.FuncOf(attach))
	api.Set("enter", pointer(true))
	api.Set("leave", pointer(false))
	api.Set("groups", js.FuncOf(groups))
	js.Global().Set("measureDNA", api)

	if !console.IsUndefined() {
		console.Call("log", "📝 measureDNA functions registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		if !console.IsUndefined() {
			console.Call("log", "✅ wasmReady event dispatched")
		}
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	<-done
}
