/*
Package domain contains the core domain models of the Boto news assistant.

It defines the dialogue vocabulary (States and Triggers), the durable entities
owned by subscribers, and the reply shapes exchanged with the transport. The
package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - State / Trigger: the closed enumerations the transition table is written in.
  - User, Location, Subject: a subscriber and their preferences.
  - Interaction: a logged query/response pair that may later receive feedback.
  - Message: a WhatsApp message received or sent, including batch digests.
  - Reply: what the dialogue answers to one inbound message.
*/
package domain
