// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of long-running
// generation work such as cover images, videos, lyrics, music, and speech
// synthesis, ensuring they don't block HTTP request handling and can recover
// from application restarts.
package task
