//go:build whisper && sonatest

package whisper

/*
#include "whisper_cgo.h"

// Invoke the installed callbacks the way the engine does.
static void sona_whisper_fire_progress(struct whisper_full_params *params, int progress) {
    if (params->progress_callback != NULL) {
        params->progress_callback(NULL, NULL, progress, params->progress_callback_user_data);
    }
}

static int sona_whisper_fire_abort(struct whisper_full_params *params) {
    if (params->abort_callback == NULL) {
        return 0;
    }
    return params->abort_callback(params->abort_callback_user_data) ? 1 : 0;
}
*/
import "C"

import "unsafe"

// installedParams is a whisper_full_params value with the bridge
// installed, used to drive the native trampolines without a model.
type installedParams struct {
	p C.struct_whisper_full_params
}

func newInstalledParams(h Handle, times int) *installedParams {
	ip := &installedParams{p: C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)}
	for i := 0; i < times; i++ {
		installCallbacks(&ip.p, h)
	}
	return ip
}

// slots returns the six bridge-owned fields as raw addresses.
func (ip *installedParams) slots() [6]uintptr {
	return [6]uintptr{
		uintptr(unsafe.Pointer(ip.p.progress_callback)),
		uintptr(ip.p.progress_callback_user_data),
		uintptr(unsafe.Pointer(ip.p.new_segment_callback)),
		uintptr(ip.p.new_segment_callback_user_data),
		uintptr(unsafe.Pointer(ip.p.abort_callback)),
		uintptr(ip.p.abort_callback_user_data),
	}
}

func (ip *installedParams) fireProgress(progress int) {
	C.sona_whisper_fire_progress(&ip.p, C.int(progress))
}

func (ip *installedParams) fireAbort() bool {
	return C.sona_whisper_fire_abort(&ip.p) != 0
}
