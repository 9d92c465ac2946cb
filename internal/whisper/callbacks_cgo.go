//go:build whisper

package whisper

/*
#include <stdint.h>
#include <whisper.h>
*/
import "C"

//export sonaGoProgressCB
func sonaGoProgressCB(handle C.uintptr_t, progress C.int32_t) {
	dispatchProgress(Handle(handle), int(progress))
}

//export sonaGoSegmentCB
func sonaGoSegmentCB(handle C.uintptr_t, ctx *C.struct_whisper_context, nNew C.int32_t) {
	dispatchSegment(Handle(handle), nativeSegments{ctx: ctx}, int(nNew))
}

//export sonaGoAbortCB
func sonaGoAbortCB(handle C.uintptr_t) C.int32_t {
	if dispatchAbort(Handle(handle)) {
		return 1
	}
	return 0
}

//export sonaGoLogCB
func sonaGoLogCB(text *C.char) {
	if !Verbose() {
		return
	}
	writeNativeLog(C.GoString(text))
}

// nativeSegments reads finalized segments straight from the engine context.
type nativeSegments struct {
	ctx *C.struct_whisper_context
}

func (s nativeSegments) NumSegments() int {
	if s.ctx == nil {
		return 0
	}
	return int(C.whisper_full_n_segments(s.ctx))
}

func (s nativeSegments) Segment(i int) Segment {
	return Segment{
		Start: int64(C.whisper_full_get_segment_t0(s.ctx, C.int(i))),
		End:   int64(C.whisper_full_get_segment_t1(s.ctx, C.int(i))),
		Text:  C.GoString(C.whisper_full_get_segment_text(s.ctx, C.int(i))),
	}
}
