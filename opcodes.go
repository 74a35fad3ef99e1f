package icewire

// Opcode is the signed 16-bit value that tags every control frame. Outbound
// opcodes (sent by the client) are predominantly negative; inbound opcodes
// (sent by the service) are mostly positive. Reproduced bit-exact from
// paltalk.h so that a capture of real wire traffic decodes without
// translation.
type Opcode int16

// protocolVersion is the constant "version" short echoed in every frame.
const protocolVersion uint16 = 0x0053

const (
	OpHello             Opcode = -117
	OpClientHello       Opcode = -100
	OpGetUIN            Opcode = -1131
	OpUINResponse       Opcode = 0x046B
	OpLymerick          Opcode = -1130
	OpServerKey         Opcode = 0x0474
	OpLogin             Opcode = -1148
	OpLoginNotComplete  Opcode = -160
	OpChecksums         Opcode = -2123
	OpVersions          Opcode = -2102
	OpUINFontDepthEtc   Opcode = -2100
	OpVersionInfo       Opcode = -2128
	OpEchoResponse      Opcode = -2103
	OpRedirect          Opcode = -119
	OpAnnouncement      Opcode = -39
	OpMaintenanceKick   Opcode = 0x002A
	OpServerError       Opcode = 0x044C

	OpIMOut Opcode = -20
	OpIMIn  Opcode = 0x0014

	OpRoomJoin          Opcode = -310
	OpRoomJoinAsAdmin   Opcode = -316
	OpRoomLeave         Opcode = -320
	OpRoomJoined        Opcode = 0x0136
	OpRoomUserJoined    Opcode = 0x0137
	OpRoomMediaServer   Opcode = 0x013B
	OpRoomUserLeft      Opcode = 0x0140
	OpRoomList          Opcode = 0x014C
	OpRoomUserlist      Opcode = 0x0154
	OpRoomMicGivenRem   Opcode = 0x0163
	OpRoomClosed        Opcode = 0x017C
	OpRoomRedDotOn      Opcode = 0x017D
	OpRoomRedDotOff     Opcode = 0x018D
	OpRoomMicReqOn      Opcode = 0x018E
	OpRoomMicReqOff     Opcode = 0x018F
	OpRoomBanUser       Opcode = -920
	OpRoomUnbanUser     Opcode = -921
	OpRoomBounceUser    Opcode = -380
	OpRoomUnbounceUser  Opcode = -911
	OpRoomBounceReason  Opcode = -390
	OpRoomGetAdminInfo  Opcode = -900
	OpRoomAdminInfo     Opcode = 0x0384
	OpRoomRequestMic    Opcode = -398
	OpRoomUnrequestMic  Opcode = -399
	OpRoomRemoveAllHand Opcode = -382
	OpRoomMediaSrvAck   Opcode = -383
	OpRoomSetTopic      Opcode = -351
	OpRoomTopic         Opcode = 0x015F
	OpRoomMessageOut    Opcode = -350
	OpRoomMessageIn     Opcode = 0x015E
	OpRoomInviteOut     Opcode = -360
	OpRoomPrivateInvite Opcode = -361
	OpDoListCategory    Opcode = -330
	OpCategoryList      Opcode = 0x019C

	OpAddBuddy        Opcode = -67
	OpRemoveBuddy     Opcode = -66
	OpBuddyList       Opcode = 0x0043
	OpBuddyRemoved    Opcode = 0x0042
	OpChangeStatus    Opcode = -620
	OpBlockBuddy      Opcode = -500
	OpUnblockBuddy    Opcode = -520
	OpBuddyStatusChg  Opcode = 0x0190
	OpBlockedBuddies  Opcode = 0x01FE

	// OpSearchQuery and OpSearchError share the wire value -69; see the
	// direction-disambiguation note in DESIGN.md (spec.md §9 Open Question).
	OpSearchQuery    Opcode = -69
	OpSearchError    Opcode = -69
	OpSearchResponse Opcode = 0x0045

	OpFileXferRequest  Opcode = -5003
	OpFileXferSendInit Opcode = -5001
	OpFileXferRecvInit Opcode = 0x0000
	OpFileXferAccepted Opcode = -5004
	OpFileXferRefused  Opcode = -5002
	OpFileXferError    Opcode = -5005
)

// dispatchFunc handles one decoded frame body.
type dispatchFunc func(s *Session, body []byte) error

// dispatchTable is a dense map from opcode to handler, populated once by
// buildDispatchTable. Opcodes present in the original with no behavioral
// effect on this client (USER_DATA, WM_MESSAGE, ROOM_BANNER_URL,
// ROOM_PREMIUM, USER_STATS, ECHO, UPGRADE, ROOM_UNKNOWN_ENCODED, LOOKAHEAD)
// are intentionally left unregistered and fall through to the diagnostic
// handler rather than being special-cased away.
type dispatchTable map[Opcode]dispatchFunc
