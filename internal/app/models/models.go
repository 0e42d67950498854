// Package models holds the persistence types shared by repositories and services.
package models

// AnonymousUploader is shown for notes uploaded without an account
const AnonymousUploader = "Anonymous"

// FileURLPrefix is the public path under which stored files are served
const FileURLPrefix = "/api/upload/files/"
