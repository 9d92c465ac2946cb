//go:build !whisper

package doctor

func checkPortAudio() Result {
	return Result{Name: "portaudio", Pass: false, Detail: "built without -tags whisper; microphone disabled"}
}

func checkModel(path string) Result {
	return Result{Name: "model load", Pass: false, Detail: "built without -tags whisper"}
}
