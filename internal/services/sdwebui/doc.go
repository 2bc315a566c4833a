// Package sdwebui generates fallback frames through a Stable Diffusion WebUI
// (AUTOMATIC1111) server's txt2img API. Client implements
// clips.ImageGenerator.
package sdwebui
