// Package res holds static resources of the application.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `A real-time bar spectrum visualizer built with Go and Fyne.

**Features:**
- Plays MP3 and WAV files
- Smoothed, interpolated spectrum bars with hue or fixed fills
- Album art, still and animated GIF backgrounds
- Motion blur trails and render-time overlay
- Options from a YAML file, remembered between runs
`
