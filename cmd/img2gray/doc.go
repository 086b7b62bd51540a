// Command img2gray converts images to grayscale PNGs.
//
// It converts files from the command line (convert), inspects them
// (identify), or serves the upload page over HTTP (serve). Settings are read
// from ~/.config/img2gray/config.toml, see "img2gray config init".
package main
