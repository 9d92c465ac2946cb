//go:build whisper && linux

package whisper

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/lib
#cgo LDFLAGS: -lwhisper -lggml -lggml-base -lggml-cpu
#cgo LDFLAGS: -lstdc++ -lm -lpthread -lgomp
*/
import "C"
