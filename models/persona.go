package models

// Persona is a named system-prompt variant selected per request.
type Persona string

const (
	PersonaTeacher    Persona = "TEACHER"
	PersonaResearcher Persona = "RESEARCHER"
	PersonaGeneral    Persona = "GENERAL"
)
