// Package artifacts owns every file a request touches.
//
// A Workspace is a private directory under the work dir, named by the request
// token and removed on Close. Publish moves the finished MP3 into the output
// directory under a name that is reserved with O_EXCL, so concurrent requests
// for the same title never overwrite each other. The sweep functions reclaim
// workspaces left behind by a crash and expire old outputs.
package artifacts
