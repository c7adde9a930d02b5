// Package protocol defines the signaling wire messages. Every message
// carries a "type" discriminator; Decode turns raw frames into the
// closed set below, with unrecognized tags mapped to Unknown rather
// than an error (servers may speak newer dialects).
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/roommate/roomlink/internal/domain"
)

const (
	TypeRegister         = "Register"
	TypeRegistered       = "Registered"
	TypeOffer            = "Offer"
	TypeAnswer           = "Answer"
	TypeIceCandidate     = "IceCandidate"
	TypeError            = "Error"
	TypeHouseHintUpdated = "HouseHintUpdated"
	TypePresenceHello    = "PresenceHello"
	TypePresenceActive   = "PresenceActive"
	TypePresenceSnapshot = "PresenceSnapshot"
	TypePresenceUpdate   = "PresenceUpdate"
	TypeProfileAnnounce  = "ProfileAnnounce"
	TypeProfileHello     = "ProfileHello"
	TypeProfileSnapshot  = "ProfileSnapshot"
	TypeProfileUpdate    = "ProfileUpdate"
)

// Message is implemented by every wire message.
type Message interface {
	MessageType() string
}

type Register struct {
	Type          string               `json:"type"`
	HouseID       domain.HouseID       `json:"house_id"`
	PeerID        domain.PeerID        `json:"peer_id"`
	SigningPubkey domain.SigningPubkey `json:"signing_pubkey,omitempty"`
}

type Registered struct {
	Type   string          `json:"type"`
	PeerID domain.PeerID   `json:"peer_id"`
	Peers  []domain.PeerID `json:"peers"`
}

type Offer struct {
	Type     string        `json:"type"`
	FromPeer domain.PeerID `json:"from_peer"`
	ToPeer   domain.PeerID `json:"to_peer"`
	SDP      string        `json:"sdp"`
}

type Answer struct {
	Type     string        `json:"type"`
	FromPeer domain.PeerID `json:"from_peer"`
	ToPeer   domain.PeerID `json:"to_peer"`
	SDP      string        `json:"sdp"`
}

type IceCandidate struct {
	Type      string        `json:"type"`
	FromPeer  domain.PeerID `json:"from_peer"`
	ToPeer    domain.PeerID `json:"to_peer"`
	Candidate string        `json:"candidate"`
}

type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type HouseHintUpdated struct {
	Type          string               `json:"type"`
	SigningPubkey domain.SigningPubkey `json:"signing_pubkey"`
}

type PresenceHello struct {
	Type                string                 `json:"type"`
	UserID              domain.UserID          `json:"user_id"`
	SigningPubkeys      []domain.SigningPubkey `json:"signing_pubkeys"`
	ActiveSigningPubkey *domain.SigningPubkey  `json:"active_signing_pubkey,omitempty"`
}

type PresenceActive struct {
	Type                string                `json:"type"`
	UserID              domain.UserID         `json:"user_id"`
	ActiveSigningPubkey *domain.SigningPubkey `json:"active_signing_pubkey"`
}

type PresenceUserStatus struct {
	UserID              domain.UserID         `json:"user_id"`
	ActiveSigningPubkey *domain.SigningPubkey `json:"active_signing_pubkey,omitempty"`
}

type PresenceSnapshot struct {
	Type          string               `json:"type"`
	SigningPubkey domain.SigningPubkey `json:"signing_pubkey"`
	Users         []PresenceUserStatus `json:"users"`
}

type PresenceUpdate struct {
	Type                string                `json:"type"`
	SigningPubkey       domain.SigningPubkey  `json:"signing_pubkey"`
	UserID              domain.UserID         `json:"user_id"`
	Online              bool                  `json:"online"`
	ActiveSigningPubkey *domain.SigningPubkey `json:"active_signing_pubkey,omitempty"`
}

type ProfileAnnounce struct {
	Type           string                 `json:"type"`
	UserID         domain.UserID          `json:"user_id"`
	DisplayName    string                 `json:"display_name"`
	RealName       *string                `json:"real_name,omitempty"`
	ShowRealName   bool                   `json:"show_real_name"`
	Rev            int64                  `json:"rev"`
	SigningPubkeys []domain.SigningPubkey `json:"signing_pubkeys"`
}

type ProfileHello struct {
	Type          string               `json:"type"`
	SigningPubkey domain.SigningPubkey `json:"signing_pubkey"`
	UserIDs       []domain.UserID      `json:"user_ids"`
}

type ProfileSnapshotRecord struct {
	UserID       domain.UserID `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	RealName     *string       `json:"real_name,omitempty"`
	ShowRealName bool          `json:"show_real_name"`
	Rev          int64         `json:"rev"`
}

type ProfileSnapshot struct {
	Type          string                  `json:"type"`
	SigningPubkey domain.SigningPubkey    `json:"signing_pubkey"`
	Profiles      []ProfileSnapshotRecord `json:"profiles"`
}

type ProfileUpdate struct {
	Type          string               `json:"type"`
	UserID        domain.UserID        `json:"user_id"`
	DisplayName   string               `json:"display_name"`
	RealName      *string              `json:"real_name,omitempty"`
	ShowRealName  bool                 `json:"show_real_name"`
	Rev           int64                `json:"rev"`
	SigningPubkey domain.SigningPubkey `json:"signing_pubkey,omitempty"`
}

// Unknown carries an unrecognized tag plus the raw frame, so callers
// can log it without treating it as a protocol error.
type Unknown struct {
	Tag string
	Raw []byte
}

func (m Register) MessageType() string         { return TypeRegister }
func (m Registered) MessageType() string       { return TypeRegistered }
func (m Offer) MessageType() string            { return TypeOffer }
func (m Answer) MessageType() string           { return TypeAnswer }
func (m IceCandidate) MessageType() string     { return TypeIceCandidate }
func (m ServerError) MessageType() string      { return TypeError }
func (m HouseHintUpdated) MessageType() string { return TypeHouseHintUpdated }
func (m PresenceHello) MessageType() string    { return TypePresenceHello }
func (m PresenceActive) MessageType() string   { return TypePresenceActive }
func (m PresenceSnapshot) MessageType() string { return TypePresenceSnapshot }
func (m PresenceUpdate) MessageType() string   { return TypePresenceUpdate }
func (m ProfileAnnounce) MessageType() string  { return TypeProfileAnnounce }
func (m ProfileHello) MessageType() string     { return TypeProfileHello }
func (m ProfileSnapshot) MessageType() string  { return TypeProfileSnapshot }
func (m ProfileUpdate) MessageType() string    { return TypeProfileUpdate }
func (m Unknown) MessageType() string          { return m.Tag }

// Encode stamps the discriminator and marshals. The Type field on the
// concrete struct may be left zero; Encode fills it from MessageType.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	tag, _ := json.Marshal(m.MessageType())
	obj["type"] = tag
	return json.Marshal(obj)
}

// Decode parses one inbound frame into its concrete message type.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	decodeInto := func(m Message) (Message, error) {
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil
	}

	switch env.Type {
	case TypeRegister:
		return decodeInto(&Register{})
	case TypeRegistered:
		return decodeInto(&Registered{})
	case TypeOffer:
		return decodeInto(&Offer{})
	case TypeAnswer:
		return decodeInto(&Answer{})
	case TypeIceCandidate:
		return decodeInto(&IceCandidate{})
	case TypeError:
		return decodeInto(&ServerError{})
	case TypeHouseHintUpdated:
		return decodeInto(&HouseHintUpdated{})
	case TypePresenceHello:
		return decodeInto(&PresenceHello{})
	case TypePresenceActive:
		return decodeInto(&PresenceActive{})
	case TypePresenceSnapshot:
		return decodeInto(&PresenceSnapshot{})
	case TypePresenceUpdate:
		return decodeInto(&PresenceUpdate{})
	case TypeProfileAnnounce:
		return decodeInto(&ProfileAnnounce{})
	case TypeProfileHello:
		return decodeInto(&ProfileHello{})
	case TypeProfileSnapshot:
		return decodeInto(&ProfileSnapshot{})
	case TypeProfileUpdate:
		return decodeInto(&ProfileUpdate{})
	default:
		return &Unknown{Tag: env.Type, Raw: data}, nil
	}
}
