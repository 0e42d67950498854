// Package services holds the business logic behind the HTTP handlers.
//
// Services defined in this package:
//   - AuthService: registration, login, logout and token revocation
//   - TopicService: topic listing and creation
//   - NoteService: file upload, listing, download and upvotes
//   - MetaDocumentService: triggering and reading AI-generated meta documents
package services

// Services groups every service used by the controllers
type Services struct {
	AuthService         AuthService
	TopicService        TopicService
	NoteService         NoteService
	MetaDocumentService MetaDocumentService
}
