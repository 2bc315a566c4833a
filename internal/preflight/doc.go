// Package preflight provides readiness checks for the directories and
// credentials scenecast depends on.
//
// The workflow manager calls RunAll before each queue item; a failing check
// leaves the item queued instead of burning LLM and TTS calls on a doomed
// run. The CLI status command uses the individual checks (CheckLLM,
// CheckSDWebUI, CheckSystemDeps) to display service health.
package preflight
