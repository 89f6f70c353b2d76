package utils

//MinImageSize is the smallest accepted width/height of an uploaded image, in pixels
const MinImageSize = 100

//MaxImageSize is the largest accepted width/height of an uploaded image, in pixels
const MaxImageSize = 4000

//MaxUploadBytes limits the body of an image upload
const MaxUploadBytes = 32 << 20

//SupportedImageExtensions lists the image files the analyzer decodes
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif", ".webp"}

//SupportedVideoExtensions lists the video files accepted for tagging
var SupportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}
